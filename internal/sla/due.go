package sla

import (
	"math"
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// PolicySet indexes policies by service category. A nil set means no policies were loaded.
type PolicySet map[string]domain.SlaPolicy

// NewPolicySet indexes a policy list; later duplicates win.
func NewPolicySet(policies []domain.SlaPolicy) PolicySet {
	set := make(PolicySet, len(policies))
	for _, p := range policies {
		set[p.ServiceCategoryID] = p
	}
	return set
}

// Lookup returns the policy for a category.
func (s PolicySet) Lookup(categoryID *string) (domain.SlaPolicy, bool) {
	if s == nil || categoryID == nil {
		return domain.SlaPolicy{}, false
	}
	p, ok := s[*categoryID]
	return p, ok
}

// CalculateSlaDue returns createdAt + resolution hours + paused seconds, or nil when no
// resolution policy applies to the category.
func CalculateSlaDue(createdAt time.Time, categoryID *string, policies PolicySet, pausedSeconds *int64) *time.Time {
	policy, ok := policies.Lookup(categoryID)
	if !ok || policy.ResolutionHours == nil || createdAt.IsZero() {
		return nil
	}
	var paused int64
	if pausedSeconds != nil && *pausedSeconds > 0 {
		paused = *pausedSeconds
	}
	due := createdAt.
		Add(hoursToDuration(*policy.ResolutionHours)).
		Add(time.Duration(paused) * time.Second)
	return &due
}

// CalculatePausedDuration returns the seconds to add to the running pause total when a
// transition from oldStatus to newStatus is committed at now. Only leaving On Hold with a
// recorded pause start accrues time. Call it exactly once per committed transition.
func CalculatePausedDuration(pausedAt *time.Time, oldStatus, newStatus domain.WorkOrderStatus, now time.Time) int64 {
	if oldStatus != domain.StatusOnHold || newStatus == domain.StatusOnHold || pausedAt == nil {
		return 0
	}
	elapsed := now.Sub(*pausedAt)
	if elapsed <= 0 {
		return 0
	}
	return int64(elapsed / time.Second)
}

// maxHours is the largest hour count a time.Duration can hold.
var maxHours = float64(math.MaxInt64) / float64(time.Hour)

// hoursToDuration saturates instead of wrapping for budgets beyond time.Duration's range.
func hoursToDuration(hours float64) time.Duration {
	switch {
	case math.IsNaN(hours) || hours <= 0:
		return 0
	case hours >= maxHours:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(hours * float64(time.Hour))
}
