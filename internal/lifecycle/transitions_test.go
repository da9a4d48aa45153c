package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetops/workorder-service/internal/domain"
)

type edge struct {
	from, to domain.WorkOrderStatus
}

func expectedTable(serviceCenter bool) map[edge]bool {
	table := map[edge]bool{}
	for _, initial := range []domain.WorkOrderStatus{domain.StatusNew, domain.StatusOpen} {
		table[edge{initial, domain.StatusConfirmation}] = true
		table[edge{initial, domain.StatusReady}] = true
		table[edge{initial, domain.StatusCancelled}] = true
		table[edge{initial, domain.StatusOnHold}] = true
		if serviceCenter {
			table[edge{initial, domain.StatusInProgress}] = true
		}
	}
	table[edge{domain.StatusConfirmation, domain.StatusReady}] = true
	table[edge{domain.StatusConfirmation, domain.StatusCancelled}] = true
	table[edge{domain.StatusConfirmation, domain.StatusOnHold}] = true
	table[edge{domain.StatusReady, domain.StatusInProgress}] = true
	table[edge{domain.StatusInProgress, domain.StatusOnHold}] = true
	table[edge{domain.StatusInProgress, domain.StatusCompleted}] = true
	table[edge{domain.StatusOnHold, domain.StatusInProgress}] = true
	table[edge{domain.StatusOnHold, domain.StatusCancelled}] = true
	return table
}

func TestTransitionTableCompleteness(t *testing.T) {
	for _, serviceCenter := range []bool{false, true} {
		table := expectedTable(serviceCenter)
		for _, from := range domain.AllStatuses {
			for _, to := range domain.AllStatuses {
				want := table[edge{from, to}]
				got := IsValidStatusTransition(string(from), string(to), serviceCenter)
				assert.Equalf(t, want, got, "%s -> %s (service center=%v)", from, to, serviceCenter)
			}
		}
	}
}

func TestCompletedIsAbsorbing(t *testing.T) {
	for _, to := range domain.AllStatuses {
		assert.False(t, IsValidStatusTransition("Completed", string(to), true))
		assert.False(t, IsValidStatusTransition("Completed", string(to), false))
	}
}

func TestEmptyAndUnknownStatusesRejected(t *testing.T) {
	assert.False(t, IsValidStatusTransition("", "Ready", false))
	assert.False(t, IsValidStatusTransition("Ready", "", false))
	assert.False(t, IsValidStatusTransition("Archived", "Ready", false))
	assert.False(t, IsValidStatusTransition("Ready", "Done", true))
}

func TestNewToInProgressRequiresServiceCenter(t *testing.T) {
	assert.False(t, IsValidStatusTransition("Open", "In Progress", false))
	assert.True(t, IsValidStatusTransition("Open", "In Progress", true))
	assert.True(t, IsValidStatusTransition("New", "In Progress", true))
}

func TestReadyToOnHoldRejectedOnEveryChannel(t *testing.T) {
	assert.False(t, IsValidStatusTransition("Ready", "On Hold", false))
	assert.False(t, IsValidStatusTransition("Ready", "On Hold", true))
}

func TestCaseInsensitiveOnBothSides(t *testing.T) {
	assert.True(t, IsValidStatusTransition("IN PROGRESS", "on hold", false))
	assert.True(t, IsValidStatusTransition("  on   hold ", "In progress", false))
	assert.True(t, IsValidStatusTransition("open", "CONFIRMATION", false))
}

func TestAllowedTransitionsDoesNotLeakTable(t *testing.T) {
	got := AllowedTransitions(domain.StatusOpen, true)
	got[0] = domain.StatusCompleted
	assert.Equal(t, domain.StatusConfirmation, AllowedTransitions(domain.StatusNew, false)[0])
	assert.Empty(t, AllowedTransitions(domain.WorkOrderStatus("bogus"), true))
}
