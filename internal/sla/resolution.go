package sla

import (
	"math"
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// SLAInfo is the live resolution-SLA projection of a work order.
type SLAInfo struct {
	State            State
	Due              *time.Time
	TargetMinutes    float64
	ElapsedMinutes   float64
	RemainingMinutes float64
	Percentage       float64
	RawPercentage    float64
	Paused           bool
	// MetSLA is set only for completed orders.
	MetSLA *bool
}

// ResolutionStatus classifies the order against its cached SlaDue. While on hold the clock
// is read at the pause start, so time on hold neither consumes budget nor moves it closer.
func (e *Engine) ResolutionStatus(wo *domain.WorkOrder) SLAInfo {
	if wo == nil || wo.SlaDue == nil || wo.Status == domain.StatusCancelled || wo.CreatedAt.IsZero() {
		return SLAInfo{State: StateNoSLA}
	}
	due := *wo.SlaDue
	paused := time.Duration(wo.TotalPausedDurationSeconds) * time.Second
	target := math.Max(0, minutesBetween(wo.CreatedAt, due)-paused.Minutes())

	reference := e.now()
	onHold := wo.Status == domain.StatusOnHold && wo.SlaTimersPausedAt != nil
	if onHold {
		reference = *wo.SlaTimersPausedAt
	}
	if wo.Status == domain.StatusCompleted && wo.CompletedAt != nil {
		reference = *wo.CompletedAt
	}

	elapsed := math.Max(0, minutesBetween(wo.CreatedAt, reference)-paused.Minutes())
	remaining := minutesBetween(reference, due)
	raw := 100.0
	if target > 0 {
		raw = elapsed / target * 100
	}

	info := SLAInfo{
		Due:              &due,
		TargetMinutes:    target,
		ElapsedMinutes:   elapsed,
		RemainingMinutes: remaining,
		Percentage:       math.Min(raw, 100),
		RawPercentage:    raw,
		Paused:           onHold,
	}
	if wo.Status == domain.StatusCompleted {
		met := remaining >= 0
		info.State = StateCompleted
		info.MetSLA = &met
		return info
	}
	info.State = classify(remaining, raw, e.cfg.WarningThreshold, StateOverdue)
	return info
}
