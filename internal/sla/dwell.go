package sla

import (
	"math"
	"sort"
	"time"

	"github.com/fleetops/workorder-service/internal/activity"
	"github.com/fleetops/workorder-service/internal/domain"
)

// EntrySource tells where a status entry time came from.
type EntrySource string

const (
	EntryExplicit       EntrySource = "explicit"
	EntryDerivedFromLog EntrySource = "derived-from-log"
	EntryUnknown        EntrySource = "unknown"
)

// EntryTime is the instant a work order entered its current status.
type EntryTime struct {
	Source EntrySource
	At     time.Time
}

// Known reports whether an instant was resolved.
func (e EntryTime) Known() bool {
	return e.Source != EntryUnknown && !e.At.IsZero()
}

// StatusSLA is the dwell-time projection for the current status.
type StatusSLA struct {
	Status           domain.WorkOrderStatus
	TargetMinutes    int
	ElapsedMinutes   float64
	RemainingMinutes float64
	// Percentage is capped at 100; RawPercentage is not.
	Percentage    float64
	RawPercentage float64
	State         State
	EnteredAt     time.Time
	EntrySource   EntrySource
}

// StatusEntryTime resolves when the order entered its current status. The structured
// per-status table wins, then the dedicated lifecycle field, then the activity log.
func StatusEntryTime(wo *domain.WorkOrder) EntryTime {
	if wo == nil {
		return EntryTime{Source: EntryUnknown}
	}
	if at, ok := enteredFromTable(wo); ok {
		return EntryTime{Source: EntryExplicit, At: at}
	}
	if at := lifecycleField(wo); at != nil && !at.IsZero() {
		return EntryTime{Source: EntryExplicit, At: *at}
	}
	if at, ok := enteredFromLog(wo.ActivityLog, wo.Status); ok {
		return EntryTime{Source: EntryDerivedFromLog, At: at}
	}
	return EntryTime{Source: EntryUnknown}
}

func enteredFromTable(wo *domain.WorkOrder) (time.Time, bool) {
	if len(wo.StatusEnteredAt) == 0 {
		return time.Time{}, false
	}
	if at, ok := wo.StatusEnteredAt[wo.Status]; ok && !at.IsZero() {
		return at, true
	}
	if wo.Status.IsInitial() {
		for _, alias := range []domain.WorkOrderStatus{domain.StatusNew, domain.StatusOpen} {
			if at, ok := wo.StatusEnteredAt[alias]; ok && !at.IsZero() {
				return at, true
			}
		}
	}
	return time.Time{}, false
}

func lifecycleField(wo *domain.WorkOrder) *time.Time {
	switch wo.Status {
	case domain.StatusNew, domain.StatusOpen:
		if wo.CreatedAt.IsZero() {
			return nil
		}
		created := wo.CreatedAt
		return &created
	case domain.StatusConfirmation:
		return wo.ConfirmedAt
	case domain.StatusInProgress:
		return wo.WorkStartedAt
	case domain.StatusCompleted:
		return wo.CompletedAt
	case domain.StatusOnHold:
		return wo.SlaTimersPausedAt
	}
	return nil
}

// enteredFromLog scans newest-first for a line recording a transition into status.
func enteredFromLog(log []domain.ActivityEntry, status domain.WorkOrderStatus) (time.Time, bool) {
	if len(log) == 0 {
		return time.Time{}, false
	}
	sorted := append([]domain.ActivityEntry(nil), log...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	for _, entry := range sorted {
		if activity.EnteredStatus(entry.Activity, status) {
			return entry.Timestamp, true
		}
	}
	return time.Time{}, false
}

// ClassifyStatus measures dwell in the current status against its configured limit.
// It returns nil when no limit is configured or no entry time can be determined.
func (e *Engine) ClassifyStatus(wo *domain.WorkOrder) *StatusSLA {
	if wo == nil {
		return nil
	}
	threshold, ok := e.Threshold(wo.Status)
	if !ok {
		return nil
	}
	entry := StatusEntryTime(wo)
	if !entry.Known() {
		return nil
	}
	elapsed := math.Max(0, minutesBetween(entry.At, e.now()))
	remaining := float64(threshold) - elapsed
	raw := elapsed / float64(threshold) * 100
	return &StatusSLA{
		Status:           wo.Status,
		TargetMinutes:    threshold,
		ElapsedMinutes:   elapsed,
		RemainingMinutes: remaining,
		Percentage:       math.Min(raw, 100),
		RawPercentage:    raw,
		State:            classify(remaining, raw, e.cfg.WarningThreshold, StateBreached),
		EnteredAt:        entry.At,
		EntrySource:      entry.Source,
	}
}
