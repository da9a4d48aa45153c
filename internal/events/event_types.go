package events

import (
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventWorkOrderCreated         EventType = "work_order_created"
	EventWorkOrderStatusChanged   EventType = "work_order_status_changed"
	EventWorkOrderPriorityChanged EventType = "work_order_priority_changed"
	EventWorkOrderAssigned        EventType = "work_order_assigned"
	EventWorkOrderSLAAtRisk       EventType = "work_order_sla_at_risk"
	EventWorkOrderSLABreached     EventType = "work_order_sla_breached"
)

// Actor identifies who caused an event. System events carry no staff id.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	WorkOrderID string      `json:"work_order_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

type WorkOrderCreatedPayload struct {
	Number            string                   `json:"number"`
	Title             string                   `json:"title"`
	Priority          domain.WorkOrderPriority `json:"priority"`
	Channel           string                   `json:"channel"`
	ServiceCategoryID *string                  `json:"service_category_id,omitempty"`
	SlaDue            *time.Time               `json:"sla_due,omitempty"`
}

type WorkOrderStatusChangedPayload struct {
	OldStatus domain.WorkOrderStatus `json:"old_status"`
	NewStatus domain.WorkOrderStatus `json:"new_status"`
	SlaDue    *time.Time             `json:"sla_due,omitempty"`
}

type WorkOrderPriorityChangedPayload struct {
	OldPriority domain.WorkOrderPriority `json:"old_priority"`
	NewPriority domain.WorkOrderPriority `json:"new_priority"`
}

type WorkOrderAssignedPayload struct {
	OldTechnicianID *string `json:"old_technician_id,omitempty"`
	NewTechnicianID *string `json:"new_technician_id,omitempty"`
}

// SLAAlertPayload is carried by at-risk and breached events. Model is "dwell" or "resolution".
type SLAAlertPayload struct {
	Model            string                 `json:"model"`
	Status           domain.WorkOrderStatus `json:"status"`
	State            string                 `json:"state"`
	TargetMinutes    int64                  `json:"target_minutes"`
	ElapsedMinutes   int64                  `json:"elapsed_minutes"`
	RemainingMinutes int64                  `json:"remaining_minutes"`
	Percentage       float64                `json:"percentage"`
	// EnteredAt is when the order entered Status; set for dwell alerts only.
	EnteredAt *time.Time `json:"entered_at,omitempty"`
}
