package domain

import (
	"strings"
	"time"
)

// WorkOrderStatus enumerates lifecycle states for work orders.
type WorkOrderStatus string

const (
	StatusNew          WorkOrderStatus = "New"
	StatusOpen         WorkOrderStatus = "Open"
	StatusConfirmation WorkOrderStatus = "Confirmation"
	StatusReady        WorkOrderStatus = "Ready"
	StatusInProgress   WorkOrderStatus = "In Progress"
	StatusOnHold       WorkOrderStatus = "On Hold"
	StatusCompleted    WorkOrderStatus = "Completed"
	StatusCancelled    WorkOrderStatus = "Cancelled"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []WorkOrderStatus{
	StatusNew,
	StatusOpen,
	StatusConfirmation,
	StatusReady,
	StatusInProgress,
	StatusOnHold,
	StatusCompleted,
	StatusCancelled,
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(raw string) (WorkOrderStatus, bool) {
	normalized := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if normalized == "" {
		return "", false
	}
	for _, status := range AllStatuses {
		if strings.ToLower(string(status)) == normalized {
			return status, true
		}
	}
	return "", false
}

// IsInitial reports whether the status is the entry state (New or Open).
func (s WorkOrderStatus) IsInitial() bool {
	return s == StatusNew || s == StatusOpen
}

// IsTerminal reports whether no further work is expected.
func (s WorkOrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// WorkOrderPriority enumerates urgency.
type WorkOrderPriority string

const (
	PriorityHigh   WorkOrderPriority = "High"
	PriorityMedium WorkOrderPriority = "Medium"
	PriorityLow    WorkOrderPriority = "Low"
)

// ParsePriority resolves a priority name case-insensitively.
func ParsePriority(raw string) (WorkOrderPriority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return "", false
}

// ChannelServiceCenter is the walk-in channel allowed to start work without confirmation.
const ChannelServiceCenter = "service-center"

// ActivityEntry is one append-only audit line on a work order.
type ActivityEntry struct {
	ID          string
	WorkOrderID string
	Timestamp   time.Time
	Activity    string
	UserID      *string
}

// WorkOrder is the aggregate for service/repair work.
type WorkOrder struct {
	ID                         string
	Number                     string
	Title                      string
	Description                string
	Status                     WorkOrderStatus
	Priority                   WorkOrderPriority
	Channel                    string
	ServiceCategoryID          *string
	AssignedTechnicianID       *string
	LocationID                 *string
	CustomerID                 *string
	VehicleID                  *string
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
	ConfirmedAt                *time.Time
	WorkStartedAt              *time.Time
	CompletedAt                *time.Time
	SlaDue                     *time.Time
	SlaTimersPausedAt          *time.Time
	TotalPausedDurationSeconds int64
	StatusEnteredAt            map[WorkOrderStatus]time.Time
	Version                    int64
	ActivityLog                []ActivityEntry
}

// IsServiceCenter reports whether the order originated at a service center.
func (w *WorkOrder) IsServiceCenter(serviceCenterChannel string) bool {
	if serviceCenterChannel == "" {
		serviceCenterChannel = ChannelServiceCenter
	}
	return strings.EqualFold(strings.TrimSpace(w.Channel), serviceCenterChannel)
}

// Canonicalize rewrites stored status and priority spellings, including the keys of
// StatusEnteredAt, to their canonical names. Unrecognized values are left untouched.
func (w *WorkOrder) Canonicalize() {
	if w == nil {
		return
	}
	if status, ok := ParseStatus(string(w.Status)); ok {
		w.Status = status
	}
	if priority, ok := ParsePriority(string(w.Priority)); ok {
		w.Priority = priority
	}
	for raw, at := range w.StatusEnteredAt {
		status, ok := ParseStatus(string(raw))
		if !ok || status == raw {
			continue
		}
		delete(w.StatusEnteredAt, raw)
		if existing, seen := w.StatusEnteredAt[status]; !seen || at.After(existing) {
			w.StatusEnteredAt[status] = at
		}
	}
}

// Clone returns a copy safe to mutate without touching the receiver's maps and slices.
func (w *WorkOrder) Clone() *WorkOrder {
	if w == nil {
		return nil
	}
	cp := *w
	if w.StatusEnteredAt != nil {
		cp.StatusEnteredAt = make(map[WorkOrderStatus]time.Time, len(w.StatusEnteredAt))
		for k, v := range w.StatusEnteredAt {
			cp.StatusEnteredAt[k] = v
		}
	}
	if w.ActivityLog != nil {
		cp.ActivityLog = append([]ActivityEntry(nil), w.ActivityLog...)
	}
	return &cp
}
