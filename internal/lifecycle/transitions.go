// Package lifecycle decides which work-order status changes are permitted.
package lifecycle

import (
	"github.com/fleetops/workorder-service/internal/domain"
)

var allowedTransitions = map[domain.WorkOrderStatus][]domain.WorkOrderStatus{
	domain.StatusNew: {
		domain.StatusConfirmation,
		domain.StatusReady,
		domain.StatusCancelled,
		domain.StatusOnHold,
	},
	domain.StatusConfirmation: {domain.StatusReady, domain.StatusCancelled, domain.StatusOnHold},
	domain.StatusReady:        {domain.StatusInProgress},
	domain.StatusInProgress:   {domain.StatusOnHold, domain.StatusCompleted},
	domain.StatusOnHold:       {domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusCompleted:    {},
	domain.StatusCancelled:    {},
}

// IsValidStatusTransition reports whether a work order may move from oldStatus to newStatus.
// Both names are matched case-insensitively; empty or unknown names are rejected.
func IsValidStatusTransition(oldStatus, newStatus string, isServiceCenter bool) bool {
	from, ok := domain.ParseStatus(oldStatus)
	if !ok {
		return false
	}
	to, ok := domain.ParseStatus(newStatus)
	if !ok {
		return false
	}
	return CanTransition(from, to, isServiceCenter)
}

// CanTransition is IsValidStatusTransition over already parsed statuses.
func CanTransition(from, to domain.WorkOrderStatus, isServiceCenter bool) bool {
	for _, candidate := range AllowedTransitions(from, isServiceCenter) {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given one.
func AllowedTransitions(from domain.WorkOrderStatus, isServiceCenter bool) []domain.WorkOrderStatus {
	key := from
	if from.IsInitial() {
		key = domain.StatusNew
	}
	allowed, exists := allowedTransitions[key]
	if !exists {
		return []domain.WorkOrderStatus{}
	}
	result := append([]domain.WorkOrderStatus{}, allowed...)
	// walk-in orders skip confirmation
	if key == domain.StatusNew && isServiceCenter {
		result = append(result, domain.StatusInProgress)
	}
	return result
}
