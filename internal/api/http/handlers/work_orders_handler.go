package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/workorder-service/internal/api/dto"
	"github.com/fleetops/workorder-service/internal/auth"
	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/repository"
	"github.com/fleetops/workorder-service/internal/service"
	"github.com/fleetops/workorder-service/internal/sla"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

// WorkOrderService is the work order use-case surface the handlers depend on.
type WorkOrderService interface {
	Create(ctx context.Context, actor *domain.StaffMember, input service.WorkOrderCreateInput) (*domain.WorkOrder, error)
	Get(ctx context.Context, id string) (*domain.WorkOrder, error)
	List(ctx context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error)
	ListActivity(ctx context.Context, id string, limit, offset int) ([]domain.ActivityEntry, error)
	AllowedTransitions(ctx context.Context, id string) (*domain.WorkOrder, []domain.WorkOrderStatus, error)
	TransitionStatus(ctx context.Context, actor *domain.StaffMember, id, status string, expectedVersion *int64) (*domain.WorkOrder, error)
	UpdatePriority(ctx context.Context, actor *domain.StaffMember, id, priority string, expectedVersion *int64) (*domain.WorkOrder, error)
	AssignTechnician(ctx context.Context, actor *domain.StaffMember, id string, technicianID *string, expectedVersion *int64) (*domain.WorkOrder, error)
	SLA(ctx context.Context, id string) (*service.WorkOrderSLA, error)
	ComplianceReport(ctx context.Context, from, to *time.Time) (sla.ComplianceReport, error)
}

// WorkOrdersHandler manages work order endpoints.
type WorkOrdersHandler struct {
	service WorkOrderService
}

// NewWorkOrdersHandler constructs handler.
func NewWorkOrdersHandler(workOrders WorkOrderService) *WorkOrdersHandler {
	return &WorkOrdersHandler{service: workOrders}
}

// Create POST /work-orders.
func (h *WorkOrdersHandler) Create(c *fiber.Ctx) error {
	actor, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.CreateWorkOrderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.WorkOrderCreateInput{
		Title:                req.Title,
		Description:          req.Description,
		Channel:              req.Channel,
		ServiceCategoryID:    req.ServiceCategoryID,
		AssignedTechnicianID: req.AssignedTechnicianID,
		LocationID:           req.LocationID,
		CustomerID:           req.CustomerID,
		VehicleID:            req.VehicleID,
	}
	if req.Priority != "" {
		priority, ok := domain.ParsePriority(req.Priority)
		if !ok {
			return apperrors.NewValidationError("unknown priority", map[string]any{"priority": req.Priority})
		}
		input.Priority = priority
	}
	wo, err := h.service.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": workOrderDetail(wo)})
}

// List GET /work-orders.
func (h *WorkOrdersHandler) List(c *fiber.Ctx) error {
	filter, err := parseWorkOrderQuery(c)
	if err != nil {
		return err
	}
	orders, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.WorkOrderSummary, 0, len(orders))
	for i := range orders {
		items = append(items, workOrderSummary(&orders[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{"limit": filter.Limit, "offset": filter.Offset},
	})
}

// Get GET /work-orders/:id.
func (h *WorkOrdersHandler) Get(c *fiber.Ctx) error {
	wo, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(wo)})
}

// Activity GET /work-orders/:id/activity.
func (h *WorkOrdersHandler) Activity(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit", 100, 1, 500)
	if err != nil {
		return err
	}
	offset, err := parseQueryInt(c, "offset", 0, 0, 1_000_000)
	if err != nil {
		return err
	}
	entries, err := h.service.ListActivity(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(entries)})
}

// Transitions GET /work-orders/:id/transitions.
func (h *WorkOrdersHandler) Transitions(c *fiber.Ctx) error {
	wo, allowed, err := h.service.AllowedTransitions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionsResponse{Status: wo.Status, Allowed: allowed}})
}

// UpdateStatus PATCH /work-orders/:id/status.
func (h *WorkOrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	wo, err := h.service.TransitionStatus(c.UserContext(), actor, c.Params("id"), req.Status, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(wo)})
}

// UpdatePriority PATCH /work-orders/:id/priority.
func (h *WorkOrdersHandler) UpdatePriority(c *fiber.Ctx) error {
	actor, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	wo, err := h.service.UpdatePriority(c.UserContext(), actor, c.Params("id"), req.Priority, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(wo)})
}

// AssignTechnician PATCH /work-orders/:id/assignee.
func (h *WorkOrdersHandler) AssignTechnician(c *fiber.Ctx) error {
	actor, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.AssignTechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	wo, err := h.service.AssignTechnician(c.UserContext(), actor, c.Params("id"), req.TechnicianID, req.Version)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderDetail(wo)})
}

// SLA GET /work-orders/:id/sla.
func (h *WorkOrdersHandler) SLA(c *fiber.Ctx) error {
	standing, err := h.service.SLA(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaResponse(standing)})
}

// Compliance GET /reports/sla-compliance.
func (h *WorkOrdersHandler) Compliance(c *fiber.Ctx) error {
	from, err := parseQueryTime(c, "completed_from")
	if err != nil {
		return err
	}
	to, err := parseQueryTime(c, "completed_to")
	if err != nil {
		return err
	}
	report, err := h.service.ComplianceReport(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ComplianceReportResponse{
		CompliancePercent:   report.CompliancePercent,
		TotalCompleted:      report.TotalCompleted,
		CompletedWithinSLA:  report.CompletedWithinSLA,
		CompletedOutsideSLA: report.CompletedOutsideSLA,
		CompletedFrom:       from,
		CompletedTo:         to,
	}})
}

func currentStaff(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

func parseWorkOrderQuery(c *fiber.Ctx) (repository.WorkOrderFilter, error) {
	filter := repository.WorkOrderFilter{
		AssignedTechnicianID: optionalQuery(c, "technician_id"),
		ServiceCategoryID:    optionalQuery(c, "service_category_id"),
		LocationID:           optionalQuery(c, "location_id"),
		Channel:              optionalQuery(c, "channel"),
		SearchTerm:           optionalQuery(c, "q"),
	}
	for _, raw := range splitQuery(c, "status") {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitQuery(c, "priority") {
		priority, ok := domain.ParsePriority(raw)
		if !ok {
			return filter, apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	var err error
	if filter.CreatedFrom, err = parseQueryTime(c, "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseQueryTime(c, "created_to"); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseQueryInt(c, "limit", 20, 1, 100); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseQueryInt(c, "offset", 0, 0, 1_000_000); err != nil {
		return filter, err
	}
	return filter, nil
}

func workOrderSummary(wo *domain.WorkOrder) dto.WorkOrderSummary {
	return dto.WorkOrderSummary{
		ID:                   wo.ID,
		Number:               wo.Number,
		Title:                wo.Title,
		Status:               wo.Status,
		Priority:             wo.Priority,
		Channel:              wo.Channel,
		ServiceCategoryID:    wo.ServiceCategoryID,
		AssignedTechnicianID: wo.AssignedTechnicianID,
		LocationID:           wo.LocationID,
		SlaDue:               wo.SlaDue,
		Version:              wo.Version,
		CreatedAt:            wo.CreatedAt,
		UpdatedAt:            wo.UpdatedAt,
	}
}

func workOrderDetail(wo *domain.WorkOrder) dto.WorkOrderDetail {
	entered := wo.StatusEnteredAt
	if entered == nil {
		entered = map[domain.WorkOrderStatus]time.Time{}
	}
	return dto.WorkOrderDetail{
		WorkOrderSummary:           workOrderSummary(wo),
		Description:                wo.Description,
		CustomerID:                 wo.CustomerID,
		VehicleID:                  wo.VehicleID,
		ConfirmedAt:                wo.ConfirmedAt,
		WorkStartedAt:              wo.WorkStartedAt,
		CompletedAt:                wo.CompletedAt,
		SlaTimersPausedAt:          wo.SlaTimersPausedAt,
		TotalPausedDurationSeconds: wo.TotalPausedDurationSeconds,
		StatusEnteredAt:            entered,
		Activity:                   activityResponses(wo.ActivityLog),
	}
}

func activityResponses(entries []domain.ActivityEntry) []dto.ActivityEntryResponse {
	out := make([]dto.ActivityEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.ActivityEntryResponse{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Activity:  e.Activity,
			UserID:    e.UserID,
		})
	}
	return out
}

func slaResponse(standing *service.WorkOrderSLA) dto.WorkOrderSLAResponse {
	res := standing.Resolution
	out := dto.WorkOrderSLAResponse{
		WorkOrderID: standing.WorkOrder.ID,
		Status:      standing.WorkOrder.Status,
		Resolution: dto.ResolutionSLAResponse{
			State:            string(res.State),
			Due:              res.Due,
			TargetMinutes:    res.TargetMinutes,
			ElapsedMinutes:   res.ElapsedMinutes,
			RemainingMinutes: res.RemainingMinutes,
			Percentage:       res.Percentage,
			Paused:           res.Paused,
			MetSLA:           res.MetSLA,
		},
	}
	if d := standing.Dwell; d != nil {
		out.Dwell = &dto.DwellSLAResponse{
			Status:           d.Status,
			State:            string(d.State),
			TargetMinutes:    d.TargetMinutes,
			ElapsedMinutes:   d.ElapsedMinutes,
			RemainingMinutes: d.RemainingMinutes,
			Percentage:       d.Percentage,
			EnteredAt:        d.EnteredAt,
			EntrySource:      string(d.EntrySource),
		}
	}
	return out
}
