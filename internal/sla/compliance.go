package sla

import (
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// ComplianceReport aggregates how many completed orders finished inside their budget.
type ComplianceReport struct {
	CompliancePercent   float64
	TotalCompleted      int
	CompletedWithinSLA  int
	CompletedOutsideSLA int
}

// ComplianceHours resolves the budget used for compliance: the priority tier when the
// policy defines one, otherwise the resolution hours.
func ComplianceHours(policy domain.SlaPolicy, priority domain.WorkOrderPriority) (float64, bool) {
	if hours, ok := policy.PriorityHours[priority]; ok && hours > 0 {
		return hours, true
	}
	if policy.ResolutionHours != nil && *policy.ResolutionHours > 0 {
		return *policy.ResolutionHours, true
	}
	return 0, false
}

// CalculateSLACompliance counts completed orders finishing by createdAt + compliance hours.
// This deadline ignores paused time and is kept apart from CalculateSlaDue on purpose.
// Orders without a completion time or a resolvable budget are left out. No eligible
// orders yields 100 percent.
func CalculateSLACompliance(orders []domain.WorkOrder, policies PolicySet) ComplianceReport {
	report := ComplianceReport{CompliancePercent: 100}
	for i := range orders {
		wo := &orders[i]
		if wo.Status != domain.StatusCompleted || wo.CompletedAt == nil {
			continue
		}
		deadline := Deadline(wo, policies)
		if deadline == nil {
			continue
		}
		report.TotalCompleted++
		if !wo.CompletedAt.After(*deadline) {
			report.CompletedWithinSLA++
		} else {
			report.CompletedOutsideSLA++
		}
	}
	if report.TotalCompleted > 0 {
		report.CompliancePercent = float64(report.CompletedWithinSLA) / float64(report.TotalCompleted) * 100
	}
	return report
}

// Deadline is the compliance deadline for one order, if any.
func Deadline(wo *domain.WorkOrder, policies PolicySet) *time.Time {
	if wo == nil {
		return nil
	}
	policy, ok := policies.Lookup(wo.ServiceCategoryID)
	if !ok {
		return nil
	}
	hours, ok := ComplianceHours(policy, wo.Priority)
	if !ok {
		return nil
	}
	deadline := wo.CreatedAt.Add(hoursToDuration(hours))
	return &deadline
}
