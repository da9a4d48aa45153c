package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fleetops/workorder-service/internal/activity"
	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/events"
	"github.com/fleetops/workorder-service/internal/lifecycle"
	"github.com/fleetops/workorder-service/internal/observability"
	"github.com/fleetops/workorder-service/internal/repository"
	"github.com/fleetops/workorder-service/internal/sla"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

const (
	activityPageSize   = 500
	complianceBatch    = 500
	maxListLimit       = 100
	transitionApplied  = "applied"
	transitionRejected = "rejected"
	transitionConflict = "conflict"
)

// PolicyProvider resolves the SLA policies currently in force.
type PolicyProvider interface {
	PolicySet(ctx context.Context) (sla.PolicySet, error)
}

// WorkOrderService coordinates work order workflows.
type WorkOrderService struct {
	orders        repository.WorkOrderRepository
	activity      repository.ActivityRepository
	staff         repository.StaffRepository
	policies      PolicyProvider
	engine        *sla.Engine
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	serviceCenter string
}

// WorkOrderDependencies bundles collaborators for the work order service.
type WorkOrderDependencies struct {
	WorkOrderRepo        repository.WorkOrderRepository
	ActivityRepo         repository.ActivityRepository
	StaffRepo            repository.StaffRepository
	Policies             PolicyProvider
	Engine               *sla.Engine
	Dispatcher           events.Dispatcher
	Metrics              *observability.Metrics
	Logger               *zap.Logger
	ServiceCenterChannel string
}

// WorkOrderCreateInput describes work order creation payload.
type WorkOrderCreateInput struct {
	Title                string
	Description          string
	Priority             domain.WorkOrderPriority
	Channel              string
	ServiceCategoryID    *string
	AssignedTechnicianID *string
	LocationID           *string
	CustomerID           *string
	VehicleID            *string
}

// WorkOrderSLA bundles both SLA projections of one order.
type WorkOrderSLA struct {
	WorkOrder  *domain.WorkOrder
	Resolution sla.SLAInfo
	Dwell      *sla.StatusSLA
}

// NewWorkOrderService constructs the service.
func NewWorkOrderService(deps WorkOrderDependencies) *WorkOrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := deps.Engine
	if engine == nil {
		engine = sla.NewEngine(sla.Config{}, nil)
	}
	return &WorkOrderService{
		orders:        deps.WorkOrderRepo,
		activity:      deps.ActivityRepo,
		staff:         deps.StaffRepo,
		policies:      deps.Policies,
		engine:        engine,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		serviceCenter: deps.ServiceCenterChannel,
	}
}

// Create opens a new work order in status New and caches its resolution deadline.
func (s *WorkOrderService) Create(ctx context.Context, actor *domain.StaffMember, input WorkOrderCreateInput) (*domain.WorkOrder, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if _, ok := domain.ParsePriority(string(priority)); !ok {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	if input.AssignedTechnicianID != nil {
		if _, err := s.technician(ctx, *input.AssignedTechnicianID); err != nil {
			return nil, err
		}
	}

	policies, err := s.policySet(ctx)
	if err != nil {
		return nil, err
	}

	now := s.engine.Now()
	wo := &domain.WorkOrder{
		Number:               generateWorkOrderNumber(),
		Title:                title,
		Description:          strings.TrimSpace(input.Description),
		Status:               domain.StatusNew,
		Priority:             priority,
		Channel:              s.normalizeChannel(input.Channel),
		ServiceCategoryID:    trimmed(input.ServiceCategoryID),
		AssignedTechnicianID: trimmed(input.AssignedTechnicianID),
		LocationID:           trimmed(input.LocationID),
		CustomerID:           trimmed(input.CustomerID),
		VehicleID:            trimmed(input.VehicleID),
		CreatedAt:            now,
		StatusEnteredAt:      map[domain.WorkOrderStatus]time.Time{domain.StatusNew: now},
	}
	wo.SlaDue = sla.CalculateSlaDue(now, wo.ServiceCategoryID, policies, nil)

	entries := []domain.ActivityEntry{newEntry(actor, now, activity.Created(wo.Number))}
	if err := s.orders.Create(ctx, wo, entries); err != nil {
		return nil, apperrors.MapError(err)
	}
	wo.ActivityLog = entries

	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderCreated,
		WorkOrderID: wo.ID,
		Actor:       staffActor(actor),
		Payload: events.WorkOrderCreatedPayload{
			Number:            wo.Number,
			Title:             wo.Title,
			Priority:          wo.Priority,
			Channel:           wo.Channel,
			ServiceCategoryID: wo.ServiceCategoryID,
			SlaDue:            wo.SlaDue,
		},
	})
	return wo, nil
}

// Get returns a work order with its activity log.
func (s *WorkOrderService) Get(ctx context.Context, id string) (*domain.WorkOrder, error) {
	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.activity != nil {
		log, err := s.activity.ListRecent(ctx, wo.ID, activityPageSize, 0)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		slices.Reverse(log)
		wo.ActivityLog = log
	}
	return wo, nil
}

// List returns work orders matching filter.
func (s *WorkOrderService) List(ctx context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return orders, nil
}

// ListActivity pages through the activity log of one order.
func (s *WorkOrderService) ListActivity(ctx context.Context, id string, limit, offset int) ([]domain.ActivityEntry, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.activity.ListByWorkOrder(ctx, id, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// AllowedTransitions lists the statuses the order may move to next.
func (s *WorkOrderService) AllowedTransitions(ctx context.Context, id string) (*domain.WorkOrder, []domain.WorkOrderStatus, error) {
	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return wo, lifecycle.AllowedTransitions(wo.Status, wo.IsServiceCenter(s.serviceCenter)), nil
}

// TransitionStatus validates and applies a status change. Pause accrual is computed from
// the stored pre-transition state, then lifecycle timestamps, the pause marker and the
// resolution deadline are updated and persisted together with the activity entries.
// A non-nil expectedVersion must match the stored version.
func (s *WorkOrderService) TransitionStatus(ctx context.Context, actor *domain.StaffMember, id, rawStatus string, expectedVersion *int64) (*domain.WorkOrder, error) {
	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(wo, expectedVersion); err != nil {
		return nil, err
	}

	newStatus, ok := domain.ParseStatus(rawStatus)
	isServiceCenter := wo.IsServiceCenter(s.serviceCenter)
	if !ok || !lifecycle.CanTransition(wo.Status, newStatus, isServiceCenter) {
		s.metrics.RecordTransition(string(wo.Status), strings.TrimSpace(rawStatus), transitionRejected)
		allowed := lifecycle.AllowedTransitions(wo.Status, isServiceCenter)
		return nil, apperrors.NewInvalidTransition(string(wo.Status), strings.TrimSpace(rawStatus), statusNames(allowed))
	}

	policies, err := s.policySet(ctx)
	if err != nil {
		return nil, err
	}

	now := s.engine.Now()
	updated := applyTransition(wo, newStatus, now, policies)
	entries := entriesFor(actor, now, activity.Diff(wo, updated))

	if err := s.orders.Save(ctx, updated, wo.Version, entries); err != nil {
		if errors.Is(err, apperrors.ErrStaleVersion) {
			s.metrics.RecordTransition(string(wo.Status), string(newStatus), transitionConflict)
			return nil, apperrors.NewVersionConflict(wo.ID, wo.Version)
		}
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordTransition(string(wo.Status), string(newStatus), transitionApplied)
	s.logger.Info("work order status changed",
		zap.String("work_order_id", wo.ID),
		zap.String("from", string(wo.Status)),
		zap.String("to", string(newStatus)),
		zap.Int64("total_paused_seconds", updated.TotalPausedDurationSeconds))

	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderStatusChanged,
		WorkOrderID: wo.ID,
		Actor:       staffActor(actor),
		Timestamp:   now,
		Payload: events.WorkOrderStatusChangedPayload{
			OldStatus: wo.Status,
			NewStatus: newStatus,
			SlaDue:    updated.SlaDue,
		},
	})
	updated.ActivityLog = entries
	return updated, nil
}

// applyTransition returns a copy of wo moved into newStatus at now. The receiver is left untouched.
func applyTransition(wo *domain.WorkOrder, newStatus domain.WorkOrderStatus, now time.Time, policies sla.PolicySet) *domain.WorkOrder {
	updated := wo.Clone()
	updated.ActivityLog = nil

	updated.TotalPausedDurationSeconds += sla.CalculatePausedDuration(wo.SlaTimersPausedAt, wo.Status, newStatus, now)

	switch newStatus {
	case domain.StatusConfirmation:
		updated.ConfirmedAt = setOnce(updated.ConfirmedAt, now)
	case domain.StatusInProgress:
		updated.WorkStartedAt = setOnce(updated.WorkStartedAt, now)
	case domain.StatusCompleted:
		updated.CompletedAt = setOnce(updated.CompletedAt, now)
	}

	if newStatus == domain.StatusOnHold {
		pausedAt := now
		updated.SlaTimersPausedAt = &pausedAt
	} else {
		updated.SlaTimersPausedAt = nil
	}

	if updated.StatusEnteredAt == nil {
		updated.StatusEnteredAt = map[domain.WorkOrderStatus]time.Time{}
	}
	updated.StatusEnteredAt[newStatus] = now

	paused := updated.TotalPausedDurationSeconds
	if due := sla.CalculateSlaDue(updated.CreatedAt, updated.ServiceCategoryID, policies, &paused); due != nil {
		updated.SlaDue = due
	}
	updated.Status = newStatus
	return updated
}

// UpdatePriority changes the urgency of an order.
func (s *WorkOrderService) UpdatePriority(ctx context.Context, actor *domain.StaffMember, id, rawPriority string, expectedVersion *int64) (*domain.WorkOrder, error) {
	priority, ok := domain.ParsePriority(rawPriority)
	if !ok {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": rawPriority})
	}
	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(wo, expectedVersion); err != nil {
		return nil, err
	}
	if wo.Status.IsTerminal() {
		return nil, apperrors.NewConflict("work order is closed", map[string]any{"status": wo.Status})
	}
	if wo.Priority == priority {
		return wo, nil
	}

	updated := wo.Clone()
	updated.Priority = priority
	now := s.engine.Now()
	entries := entriesFor(actor, now, activity.Diff(wo, updated))
	if err := s.save(ctx, updated, wo.Version, entries); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderPriorityChanged,
		WorkOrderID: wo.ID,
		Actor:       staffActor(actor),
		Timestamp:   now,
		Payload: events.WorkOrderPriorityChangedPayload{
			OldPriority: wo.Priority,
			NewPriority: priority,
		},
	})
	updated.ActivityLog = entries
	return updated, nil
}

// AssignTechnician sets or clears the technician on an order. A nil id unassigns.
func (s *WorkOrderService) AssignTechnician(ctx context.Context, actor *domain.StaffMember, id string, technicianID *string, expectedVersion *int64) (*domain.WorkOrder, error) {
	technicianID = trimmed(technicianID)
	if technicianID != nil {
		if _, err := s.technician(ctx, *technicianID); err != nil {
			return nil, err
		}
	}
	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(wo, expectedVersion); err != nil {
		return nil, err
	}
	if wo.Status.IsTerminal() {
		return nil, apperrors.NewConflict("work order is closed", map[string]any{"status": wo.Status})
	}

	updated := wo.Clone()
	updated.AssignedTechnicianID = technicianID
	now := s.engine.Now()
	messages := activity.Diff(wo, updated)
	if len(messages) == 0 {
		return wo, nil
	}
	entries := entriesFor(actor, now, messages)
	if err := s.save(ctx, updated, wo.Version, entries); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderAssigned,
		WorkOrderID: wo.ID,
		Actor:       staffActor(actor),
		Timestamp:   now,
		Payload: events.WorkOrderAssignedPayload{
			OldTechnicianID: wo.AssignedTechnicianID,
			NewTechnicianID: technicianID,
		},
	})
	updated.ActivityLog = entries
	return updated, nil
}

// SLA returns the resolution and dwell projections for an order at the engine clock.
func (s *WorkOrderService) SLA(ctx context.Context, id string) (*WorkOrderSLA, error) {
	wo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.activity != nil && !sla.StatusEntryTime(wo).Known() && len(wo.ActivityLog) >= activityPageSize {
		log, err := repository.LoadEntryLog(ctx, s.activity, wo, activityPageSize)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		wo.ActivityLog = log
	}
	return &WorkOrderSLA{
		WorkOrder:  wo,
		Resolution: s.engine.ResolutionStatus(wo),
		Dwell:      s.engine.ClassifyStatus(wo),
	}, nil
}

// ComplianceReport aggregates compliance over orders completed inside [from, to].
func (s *WorkOrderService) ComplianceReport(ctx context.Context, from, to *time.Time) (sla.ComplianceReport, error) {
	if from != nil && to != nil && to.Before(*from) {
		return sla.ComplianceReport{}, apperrors.NewValidationError("completed_to precedes completed_from", nil)
	}
	policies, err := s.policySet(ctx)
	if err != nil {
		return sla.ComplianceReport{}, err
	}

	var completed []domain.WorkOrder
	for offset := 0; ; offset += complianceBatch {
		batch, err := s.orders.List(ctx, repository.WorkOrderFilter{
			Statuses:      []domain.WorkOrderStatus{domain.StatusCompleted},
			CompletedFrom: from,
			CompletedTo:   to,
			Limit:         complianceBatch,
			Offset:        offset,
		})
		if err != nil {
			return sla.ComplianceReport{}, apperrors.MapError(err)
		}
		completed = append(completed, batch...)
		if len(batch) < complianceBatch {
			break
		}
	}
	return sla.CalculateSLACompliance(completed, policies), nil
}

func (s *WorkOrderService) load(ctx context.Context, id string) (*domain.WorkOrder, error) {
	wo, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work order", map[string]any{"work_order_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	wo.Canonicalize()
	return wo, nil
}

func (s *WorkOrderService) save(ctx context.Context, wo *domain.WorkOrder, expected int64, entries []domain.ActivityEntry) error {
	if err := s.orders.Save(ctx, wo, expected, entries); err != nil {
		if errors.Is(err, apperrors.ErrStaleVersion) {
			return apperrors.NewVersionConflict(wo.ID, expected)
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *WorkOrderService) technician(ctx context.Context, id string) (*domain.StaffMember, error) {
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"staff_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if staff.Role != domain.StaffRoleTechnician {
		return nil, apperrors.NewValidationError("assignee is not a technician", map[string]any{"staff_id": id, "role": staff.Role})
	}
	if !staff.Active {
		return nil, apperrors.NewConflict("technician inactive", map[string]any{"staff_id": id})
	}
	return staff, nil
}

func (s *WorkOrderService) policySet(ctx context.Context) (sla.PolicySet, error) {
	if s.policies == nil {
		return nil, nil
	}
	set, err := s.policies.PolicySet(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return set, nil
}

func (s *WorkOrderService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.engine.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("work_order_id", event.WorkOrderID),
			zap.Error(err))
	}
}

func checkVersion(wo *domain.WorkOrder, expected *int64) error {
	if expected != nil && *expected != wo.Version {
		return apperrors.NewVersionConflict(wo.ID, *expected)
	}
	return nil
}

func generateWorkOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "WO-" + strings.ToUpper(id[:8])
}

func staffActor(actor *domain.StaffMember) events.Actor {
	if actor == nil {
		return events.Actor{Type: domain.SubjectTypeSystem}
	}
	id := actor.ID
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &id}
}

func newEntry(actor *domain.StaffMember, at time.Time, message string) domain.ActivityEntry {
	entry := domain.ActivityEntry{Timestamp: at, Activity: message}
	if actor != nil {
		id := actor.ID
		entry.UserID = &id
	}
	return entry
}

func entriesFor(actor *domain.StaffMember, at time.Time, messages []string) []domain.ActivityEntry {
	entries := make([]domain.ActivityEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, newEntry(actor, at, msg))
	}
	return entries
}

func setOnce(current *time.Time, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	return &now
}

// normalizeChannel defaults an empty channel to the configured service center channel.
func (s *WorkOrderService) normalizeChannel(channel string) string {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel != "" {
		return channel
	}
	if configured := strings.ToLower(strings.TrimSpace(s.serviceCenter)); configured != "" {
		return configured
	}
	return domain.ChannelServiceCenter
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func statusNames(statuses []domain.WorkOrderStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
