package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/workorder-service/internal/api/dto"
	"github.com/fleetops/workorder-service/internal/domain"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

// SlaPolicyService is the policy management surface the handlers depend on.
type SlaPolicyService interface {
	List(ctx context.Context) ([]domain.SlaPolicy, error)
	Get(ctx context.Context, categoryID string) (*domain.SlaPolicy, error)
	Upsert(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error)
	Delete(ctx context.Context, categoryID string) error
}

// SlaPoliciesHandler manages SLA policy endpoints.
type SlaPoliciesHandler struct {
	service SlaPolicyService
}

// NewSlaPoliciesHandler constructs handler.
func NewSlaPoliciesHandler(policies SlaPolicyService) *SlaPoliciesHandler {
	return &SlaPoliciesHandler{service: policies}
}

// List GET /sla-policies.
func (h *SlaPoliciesHandler) List(c *fiber.Ctx) error {
	policies, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SlaPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, slaPolicyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /sla-policies/:categoryId.
func (h *SlaPoliciesHandler) Get(c *fiber.Ctx) error {
	policy, err := h.service.Get(c.UserContext(), c.Params("categoryId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaPolicyResponse(policy)})
}

// Upsert PUT /sla-policies/:categoryId.
func (h *SlaPoliciesHandler) Upsert(c *fiber.Ctx) error {
	var req dto.UpsertSlaPolicyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	categoryID := strings.TrimSpace(c.Params("categoryId"))
	if categoryID == "" {
		return apperrors.NewValidationError("category id required", nil)
	}
	policy := &domain.SlaPolicy{
		ServiceCategoryID:  categoryID,
		Name:               req.Name,
		ResolutionHours:    req.ResolutionHours,
		FirstResponseHours: req.FirstResponseHours,
		ResponseHours:      req.ResponseHours,
		RepairHours:        req.RepairHours,
	}
	if len(req.PriorityHours) > 0 {
		policy.PriorityHours = make(map[domain.WorkOrderPriority]float64, len(req.PriorityHours))
		for raw, hours := range req.PriorityHours {
			priority, ok := domain.ParsePriority(raw)
			if !ok {
				return apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
			}
			policy.PriorityHours[priority] = hours
		}
	}
	saved, err := h.service.Upsert(c.UserContext(), policy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaPolicyResponse(saved)})
}

// Delete DELETE /sla-policies/:categoryId.
func (h *SlaPoliciesHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("categoryId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func slaPolicyResponse(p *domain.SlaPolicy) dto.SlaPolicyResponse {
	hours := p.PriorityHours
	if hours == nil {
		hours = map[domain.WorkOrderPriority]float64{}
	}
	return dto.SlaPolicyResponse{
		ServiceCategoryID:  p.ServiceCategoryID,
		Name:               p.Name,
		ResolutionHours:    p.ResolutionHours,
		FirstResponseHours: p.FirstResponseHours,
		ResponseHours:      p.ResponseHours,
		RepairHours:        p.RepairHours,
		PriorityHours:      hours,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
