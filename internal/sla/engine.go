// Package sla computes SLA deadlines and classifies work orders against them.
//
// Two independent models live here. The resolution SLA derives a due date from the
// service category policy and pushes it out by time spent on hold. The dwell SLA limits
// how long an order may sit in its current status. They are not expected to agree.
package sla

import (
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// DefaultWarningThreshold is used when the configured fraction is out of range.
const DefaultWarningThreshold = 0.75

// State is the classification of a work order against an SLA.
type State string

const (
	StateOnTrack   State = "on-track"
	StateAtRisk    State = "at-risk"
	StateBreached  State = "breached"
	StateOverdue   State = "overdue"
	StateCompleted State = "completed"
	StateNoSLA     State = "no-sla"
)

// Config carries per-status dwell limits in minutes and the at-risk fraction.
type Config struct {
	StatusThresholds map[domain.WorkOrderStatus]int
	WarningThreshold float64
}

// Clock returns the current instant.
type Clock func() time.Time

// Engine evaluates live SLA standing with an explicit configuration and clock.
type Engine struct {
	cfg Config
	now Clock
}

// NewEngine builds an engine. A nil clock falls back to time.Now.
func NewEngine(cfg Config, clock Clock) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if cfg.WarningThreshold <= 0 || cfg.WarningThreshold > 1 {
		cfg.WarningThreshold = DefaultWarningThreshold
	}
	thresholds := make(map[domain.WorkOrderStatus]int, len(cfg.StatusThresholds))
	for status, minutes := range cfg.StatusThresholds {
		thresholds[status] = minutes
	}
	cfg.StatusThresholds = thresholds
	return &Engine{cfg: cfg, now: clock}
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

// WarningThreshold returns the effective at-risk fraction.
func (e *Engine) WarningThreshold() float64 {
	return e.cfg.WarningThreshold
}

// Threshold returns the dwell limit for a status. New and Open share a limit when only one is configured.
func (e *Engine) Threshold(status domain.WorkOrderStatus) (int, bool) {
	if minutes, ok := e.cfg.StatusThresholds[status]; ok && minutes > 0 {
		return minutes, true
	}
	if status.IsInitial() {
		for _, alias := range []domain.WorkOrderStatus{domain.StatusNew, domain.StatusOpen} {
			if minutes, ok := e.cfg.StatusThresholds[alias]; ok && minutes > 0 {
				return minutes, true
			}
		}
	}
	return 0, false
}

// PausedDuration is CalculatePausedDuration evaluated at the engine clock.
func (e *Engine) PausedDuration(wo *domain.WorkOrder, newStatus domain.WorkOrderStatus) int64 {
	if wo == nil {
		return 0
	}
	return CalculatePausedDuration(wo.SlaTimersPausedAt, wo.Status, newStatus, e.now())
}

func classify(remaining, rawPercentage, warning float64, overState State) State {
	if remaining < 0 {
		return overState
	}
	if rawPercentage >= warning*100 {
		return StateAtRisk
	}
	return StateOnTrack
}

func minutesBetween(from, to time.Time) float64 {
	return to.Sub(from).Minutes()
}
