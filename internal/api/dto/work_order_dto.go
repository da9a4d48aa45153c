package dto

import (
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// CreateWorkOrderRequest payload.
type CreateWorkOrderRequest struct {
	Title                string  `json:"title" validate:"required,max=200"`
	Description          string  `json:"description" validate:"max=4000"`
	Priority             string  `json:"priority" validate:"omitempty,oneof=High Medium Low high medium low"`
	Channel              string  `json:"channel" validate:"max=64"`
	ServiceCategoryID    *string `json:"service_category_id"`
	AssignedTechnicianID *string `json:"assigned_technician_id"`
	LocationID           *string `json:"location_id"`
	CustomerID           *string `json:"customer_id"`
	VehicleID            *string `json:"vehicle_id"`
}

// UpdateStatusRequest payload. Version enables optimistic concurrency when present.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Version *int64 `json:"version" validate:"omitempty,min=1"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required"`
	Version  *int64 `json:"version" validate:"omitempty,min=1"`
}

// AssignTechnicianRequest payload. A null technician unassigns.
type AssignTechnicianRequest struct {
	TechnicianID *string `json:"technician_id"`
	Version      *int64  `json:"version" validate:"omitempty,min=1"`
}

// WorkOrderSummary response.
type WorkOrderSummary struct {
	ID                   string                   `json:"id"`
	Number               string                   `json:"number"`
	Title                string                   `json:"title"`
	Status               domain.WorkOrderStatus   `json:"status"`
	Priority             domain.WorkOrderPriority `json:"priority"`
	Channel              string                   `json:"channel"`
	ServiceCategoryID    *string                  `json:"service_category_id"`
	AssignedTechnicianID *string                  `json:"assigned_technician_id"`
	LocationID           *string                  `json:"location_id"`
	SlaDue               *time.Time               `json:"sla_due"`
	Version              int64                    `json:"version"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

// WorkOrderDetail provides the full work order.
type WorkOrderDetail struct {
	WorkOrderSummary
	Description                string                               `json:"description"`
	CustomerID                 *string                              `json:"customer_id"`
	VehicleID                  *string                              `json:"vehicle_id"`
	ConfirmedAt                *time.Time                           `json:"confirmed_at"`
	WorkStartedAt              *time.Time                           `json:"work_started_at"`
	CompletedAt                *time.Time                           `json:"completed_at"`
	SlaTimersPausedAt          *time.Time                           `json:"sla_timers_paused_at"`
	TotalPausedDurationSeconds int64                                `json:"total_paused_duration_seconds"`
	StatusEnteredAt            map[domain.WorkOrderStatus]time.Time `json:"status_entered_at"`
	Activity                   []ActivityEntryResponse              `json:"activity"`
}

// ActivityEntryResponse is one audit line.
type ActivityEntryResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Activity  string    `json:"activity"`
	UserID    *string   `json:"user_id"`
}

// TransitionsResponse lists the statuses reachable from the current one.
type TransitionsResponse struct {
	Status  domain.WorkOrderStatus   `json:"status"`
	Allowed []domain.WorkOrderStatus `json:"allowed"`
}
