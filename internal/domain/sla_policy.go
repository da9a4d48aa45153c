package domain

import "time"

// MaxPolicyHours caps any single policy budget at ten years.
const MaxPolicyHours = 87600

// SlaPolicy is the time budget for one service category.
type SlaPolicy struct {
	ServiceCategoryID  string
	Name               string
	ResolutionHours    *float64
	FirstResponseHours *float64
	ResponseHours      *float64
	RepairHours        *float64
	// PriorityHours optionally tiers the compliance budget per priority.
	PriorityHours map[WorkOrderPriority]float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
