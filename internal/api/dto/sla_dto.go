package dto

import (
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// UpsertSlaPolicyRequest payload; the category comes from the path.
type UpsertSlaPolicyRequest struct {
	Name               string             `json:"name" validate:"max=120"`
	ResolutionHours    *float64           `json:"resolution_hours" validate:"omitempty,gt=0,lte=87600"`
	FirstResponseHours *float64           `json:"first_response_hours" validate:"omitempty,gt=0,lte=87600"`
	ResponseHours      *float64           `json:"response_hours" validate:"omitempty,gt=0,lte=87600"`
	RepairHours        *float64           `json:"repair_hours" validate:"omitempty,gt=0,lte=87600"`
	PriorityHours      map[string]float64 `json:"priority_hours" validate:"omitempty,dive,keys,oneof=High Medium Low,endkeys,gt=0,lte=87600"`
}

// SlaPolicyResponse response.
type SlaPolicyResponse struct {
	ServiceCategoryID  string                               `json:"service_category_id"`
	Name               string                               `json:"name"`
	ResolutionHours    *float64                             `json:"resolution_hours"`
	FirstResponseHours *float64                             `json:"first_response_hours"`
	ResponseHours      *float64                             `json:"response_hours"`
	RepairHours        *float64                             `json:"repair_hours"`
	PriorityHours      map[domain.WorkOrderPriority]float64 `json:"priority_hours"`
	CreatedAt          time.Time                            `json:"created_at"`
	UpdatedAt          time.Time                            `json:"updated_at"`
}

// ResolutionSLAResponse is the live resolution-SLA standing.
type ResolutionSLAResponse struct {
	State            string     `json:"state"`
	Due              *time.Time `json:"due"`
	TargetMinutes    float64    `json:"target_minutes"`
	ElapsedMinutes   float64    `json:"elapsed_minutes"`
	RemainingMinutes float64    `json:"remaining_minutes"`
	Percentage       float64    `json:"percentage"`
	Paused           bool       `json:"paused"`
	MetSLA           *bool      `json:"met_sla,omitempty"`
}

// DwellSLAResponse is the time-in-status standing.
type DwellSLAResponse struct {
	Status           domain.WorkOrderStatus `json:"status"`
	State            string                 `json:"state"`
	TargetMinutes    int                    `json:"target_minutes"`
	ElapsedMinutes   float64                `json:"elapsed_minutes"`
	RemainingMinutes float64                `json:"remaining_minutes"`
	Percentage       float64                `json:"percentage"`
	EnteredAt        time.Time              `json:"entered_at"`
	EntrySource      string                 `json:"entry_source"`
}

// WorkOrderSLAResponse bundles both SLA models.
type WorkOrderSLAResponse struct {
	WorkOrderID string                 `json:"work_order_id"`
	Status      domain.WorkOrderStatus `json:"status"`
	Resolution  ResolutionSLAResponse  `json:"resolution"`
	Dwell       *DwellSLAResponse      `json:"dwell"`
}

// ComplianceReportResponse response.
type ComplianceReportResponse struct {
	CompliancePercent   float64    `json:"compliance_percent"`
	TotalCompleted      int        `json:"total_completed"`
	CompletedWithinSLA  int        `json:"completed_within_sla"`
	CompletedOutsideSLA int        `json:"completed_outside_sla"`
	CompletedFrom       *time.Time `json:"completed_from,omitempty"`
	CompletedTo         *time.Time `json:"completed_to,omitempty"`
}
