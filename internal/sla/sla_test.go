package sla

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/workorder-service/internal/domain"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func testPolicies() PolicySet {
	return NewPolicySet([]domain.SlaPolicy{
		{ServiceCategoryID: "brakes", Name: "Brakes", ResolutionHours: ptr(24.0)},
		{ServiceCategoryID: "tyres", Name: "Tyres", ResolutionHours: ptr(4.0), PriorityHours: map[domain.WorkOrderPriority]float64{
			domain.PriorityHigh: 2,
		}},
		{ServiceCategoryID: "paint", Name: "Paint"},
	})
}

func TestCalculateSlaDueAddsResolutionHours(t *testing.T) {
	due := CalculateSlaDue(t0, ptr("brakes"), testPolicies(), ptr(int64(0)))
	require.NotNil(t, due)
	assert.Equal(t, t0.Add(24*time.Hour), *due)

	due = CalculateSlaDue(t0, ptr("brakes"), testPolicies(), nil)
	require.NotNil(t, due)
	assert.Equal(t, t0.Add(24*time.Hour), *due)
}

func TestCalculateSlaDueNoPolicy(t *testing.T) {
	policies := testPolicies()
	assert.Nil(t, CalculateSlaDue(t0, nil, policies, ptr(int64(0))))
	assert.Nil(t, CalculateSlaDue(t0, ptr("catX"), policies, ptr(int64(0))))
	assert.Nil(t, CalculateSlaDue(t0, ptr("paint"), policies, ptr(int64(0))))
	assert.Nil(t, CalculateSlaDue(t0, ptr("brakes"), nil, ptr(int64(0))))
}

func TestCalculateSlaDueIsMonotonicInPausedTime(t *testing.T) {
	policies := testPolicies()
	var prev time.Time
	for _, paused := range []int64{0, 1, 59, 3600, 7200, 86400} {
		due := CalculateSlaDue(t0, ptr("brakes"), policies, ptr(paused))
		require.NotNil(t, due)
		assert.False(t, due.Before(prev), "paused=%d", paused)
		prev = *due
	}
}

func TestCalculateSlaDueSaturatesHugeBudgets(t *testing.T) {
	policies := NewPolicySet([]domain.SlaPolicy{
		{ServiceCategoryID: "fleet", Name: "Fleet", ResolutionHours: ptr(3_000_000.0)},
	})
	due := CalculateSlaDue(t0, ptr("fleet"), policies, ptr(int64(0)))
	require.NotNil(t, due)
	assert.True(t, due.After(t0), "due %s must not precede creation", due)

	wo := &domain.WorkOrder{Status: domain.StatusInProgress, CreatedAt: t0, SlaDue: due, ServiceCategoryID: ptr("fleet"), Priority: domain.PriorityMedium}
	info := NewEngine(Config{WarningThreshold: 0.75}, fixedClock(t0.Add(time.Nanosecond))).ResolutionStatus(wo)
	assert.Equal(t, StateOnTrack, info.State)

	deadline := Deadline(wo, policies)
	require.NotNil(t, deadline)
	assert.True(t, deadline.After(t0))
}

func TestHoursToDurationBounds(t *testing.T) {
	assert.Equal(t, 90*time.Minute, hoursToDuration(1.5))
	assert.Equal(t, time.Duration(0), hoursToDuration(-3))
	assert.Equal(t, time.Duration(math.MaxInt64), hoursToDuration(1e12))
	assert.Equal(t, time.Duration(math.MaxInt64), hoursToDuration(math.Inf(1)))
}

func TestCalculatePausedDuration(t *testing.T) {
	pausedAt := t0
	now := t0.Add(90*time.Minute + 900*time.Millisecond)

	for _, old := range domain.AllStatuses {
		if old == domain.StatusOnHold {
			continue
		}
		for _, next := range domain.AllStatuses {
			assert.Zero(t, CalculatePausedDuration(&pausedAt, old, next, now))
		}
	}
	assert.Zero(t, CalculatePausedDuration(nil, domain.StatusOnHold, domain.StatusInProgress, now))
	assert.Zero(t, CalculatePausedDuration(&pausedAt, domain.StatusOnHold, domain.StatusOnHold, now))
	assert.Equal(t, int64(5400), CalculatePausedDuration(&pausedAt, domain.StatusOnHold, domain.StatusInProgress, now))
	assert.Equal(t, int64(5400), CalculatePausedDuration(&pausedAt, domain.StatusOnHold, domain.StatusCancelled, now))
	assert.Zero(t, CalculatePausedDuration(&now, domain.StatusOnHold, domain.StatusInProgress, pausedAt))
}

func TestScenarioPauseShiftsDueDate(t *testing.T) {
	t1 := t0.Add(3 * time.Hour)
	resumedAt := t1.Add(2 * time.Hour)
	engine := NewEngine(Config{}, fixedClock(resumedAt))
	wo := &domain.WorkOrder{Status: domain.StatusOnHold, SlaTimersPausedAt: &t1}

	added := engine.PausedDuration(wo, domain.StatusInProgress)
	assert.Equal(t, int64(7200), added)

	base := CalculateSlaDue(t0, ptr("brakes"), testPolicies(), ptr(int64(0)))
	shifted := CalculateSlaDue(t0, ptr("brakes"), testPolicies(), ptr(added))
	require.NotNil(t, base)
	require.NotNil(t, shifted)
	assert.Equal(t, 2*time.Hour, shifted.Sub(*base))
}

func TestScenarioDwellAtRisk(t *testing.T) {
	cfg := Config{
		StatusThresholds: map[domain.WorkOrderStatus]int{domain.StatusInProgress: 1440},
		WarningThreshold: 0.75,
	}
	due := CalculateSlaDue(t0, ptr("brakes"), testPolicies(), ptr(int64(0)))
	require.NotNil(t, due)
	assert.Equal(t, t0.Add(24*time.Hour), *due)

	wo := &domain.WorkOrder{Status: domain.StatusInProgress, CreatedAt: t0, WorkStartedAt: &t0, SlaDue: due}

	early := NewEngine(cfg, fixedClock(t0.Add(1079*time.Minute))).ClassifyStatus(wo)
	require.NotNil(t, early)
	assert.Equal(t, StateOnTrack, early.State)

	atRisk := NewEngine(cfg, fixedClock(t0.Add(1080*time.Minute))).ClassifyStatus(wo)
	require.NotNil(t, atRisk)
	assert.Equal(t, StateAtRisk, atRisk.State)
	assert.InDelta(t, 75.0, atRisk.Percentage, 0.0001)

	late := NewEngine(cfg, fixedClock(t0.Add(23*time.Hour))).ClassifyStatus(wo)
	require.NotNil(t, late)
	assert.Equal(t, StateAtRisk, late.State)
	assert.Equal(t, EntryExplicit, late.EntrySource)
}

func TestClassifyStatusBreachedCapsPercentage(t *testing.T) {
	cfg := Config{StatusThresholds: map[domain.WorkOrderStatus]int{domain.StatusReady: 60}}
	entered := t0
	wo := &domain.WorkOrder{
		Status:          domain.StatusReady,
		CreatedAt:       t0.Add(-time.Hour),
		StatusEnteredAt: map[domain.WorkOrderStatus]time.Time{domain.StatusReady: entered},
	}
	got := NewEngine(cfg, fixedClock(t0.Add(90*time.Minute))).ClassifyStatus(wo)
	require.NotNil(t, got)
	assert.Equal(t, StateBreached, got.State)
	assert.Equal(t, 100.0, got.Percentage)
	assert.InDelta(t, 150.0, got.RawPercentage, 0.0001)
	assert.InDelta(t, -30.0, got.RemainingMinutes, 0.0001)
}

func TestClassifyStatusReturnsNilWithoutThresholdOrEntry(t *testing.T) {
	engine := NewEngine(Config{StatusThresholds: map[domain.WorkOrderStatus]int{domain.StatusReady: 60}}, fixedClock(t0))
	assert.Nil(t, engine.ClassifyStatus(&domain.WorkOrder{Status: domain.StatusConfirmation, CreatedAt: t0}))
	assert.Nil(t, engine.ClassifyStatus(&domain.WorkOrder{Status: domain.StatusReady, CreatedAt: t0}))
	assert.Nil(t, engine.ClassifyStatus(nil))
}

func TestInitialStatusesShareThreshold(t *testing.T) {
	engine := NewEngine(Config{StatusThresholds: map[domain.WorkOrderStatus]int{domain.StatusOpen: 30}}, fixedClock(t0.Add(10*time.Minute)))
	got := engine.ClassifyStatus(&domain.WorkOrder{Status: domain.StatusNew, CreatedAt: t0})
	require.NotNil(t, got)
	assert.Equal(t, 30, got.TargetMinutes)
	assert.Equal(t, StateOnTrack, got.State)
}

func TestStatusEntryTimeFallsBackToNewestLogLine(t *testing.T) {
	first := t0.Add(time.Hour)
	second := t0.Add(5 * time.Hour)
	wo := &domain.WorkOrder{
		Status:    domain.StatusReady,
		CreatedAt: t0,
		ActivityLog: []domain.ActivityEntry{
			{Timestamp: first, Activity: "Status changed from 'Confirmation' to 'Ready'."},
			{Timestamp: t0.Add(2 * time.Hour), Activity: "Status changed from 'Ready' to 'On Hold'."},
			{Timestamp: second, Activity: "Status changed from 'On Hold' to 'Ready'."},
			{Timestamp: t0.Add(6 * time.Hour), Activity: "Priority changed from 'Low' to 'High'."},
		},
	}
	entry := StatusEntryTime(wo)
	assert.Equal(t, EntryDerivedFromLog, entry.Source)
	assert.Equal(t, second, entry.At)

	wo.StatusEnteredAt = map[domain.WorkOrderStatus]time.Time{domain.StatusReady: first}
	entry = StatusEntryTime(wo)
	assert.Equal(t, EntryExplicit, entry.Source)
	assert.Equal(t, first, entry.At)

	assert.Equal(t, EntryUnknown, StatusEntryTime(&domain.WorkOrder{Status: domain.StatusReady}).Source)
}

func TestResolutionStatus(t *testing.T) {
	cfg := Config{WarningThreshold: 0.75}
	due := t0.Add(24 * time.Hour)
	wo := &domain.WorkOrder{Status: domain.StatusInProgress, CreatedAt: t0, SlaDue: &due}

	info := NewEngine(cfg, fixedClock(t0.Add(6*time.Hour))).ResolutionStatus(wo)
	assert.Equal(t, StateOnTrack, info.State)
	assert.InDelta(t, 1440.0, info.TargetMinutes, 0.0001)
	assert.InDelta(t, 25.0, info.Percentage, 0.0001)

	info = NewEngine(cfg, fixedClock(t0.Add(20*time.Hour))).ResolutionStatus(wo)
	assert.Equal(t, StateAtRisk, info.State)

	info = NewEngine(cfg, fixedClock(t0.Add(25*time.Hour))).ResolutionStatus(wo)
	assert.Equal(t, StateOverdue, info.State)
	assert.Equal(t, 100.0, info.Percentage)
}

func TestResolutionStatusFreezesWhileOnHold(t *testing.T) {
	due := t0.Add(24 * time.Hour)
	pausedAt := t0.Add(6 * time.Hour)
	wo := &domain.WorkOrder{Status: domain.StatusOnHold, CreatedAt: t0, SlaDue: &due, SlaTimersPausedAt: &pausedAt}

	info := NewEngine(Config{}, fixedClock(t0.Add(30*time.Hour))).ResolutionStatus(wo)
	assert.Equal(t, StateOnTrack, info.State)
	assert.True(t, info.Paused)
	assert.InDelta(t, 360.0, info.ElapsedMinutes, 0.0001)
}

func TestResolutionStatusAccountsForPausedTotal(t *testing.T) {
	due := t0.Add(26 * time.Hour)
	wo := &domain.WorkOrder{Status: domain.StatusInProgress, CreatedAt: t0, SlaDue: &due, TotalPausedDurationSeconds: 7200}
	info := NewEngine(Config{}, fixedClock(t0.Add(14*time.Hour))).ResolutionStatus(wo)
	assert.InDelta(t, 1440.0, info.TargetMinutes, 0.0001)
	assert.InDelta(t, 720.0, info.ElapsedMinutes, 0.0001)
	assert.InDelta(t, 50.0, info.Percentage, 0.0001)
}

func TestResolutionStatusSentinels(t *testing.T) {
	engine := NewEngine(Config{}, fixedClock(t0))
	due := t0.Add(time.Hour)
	assert.Equal(t, StateNoSLA, engine.ResolutionStatus(&domain.WorkOrder{Status: domain.StatusOpen, CreatedAt: t0}).State)
	assert.Equal(t, StateNoSLA, engine.ResolutionStatus(&domain.WorkOrder{Status: domain.StatusCancelled, CreatedAt: t0, SlaDue: &due}).State)

	completedAt := t0.Add(2 * time.Hour)
	info := engine.ResolutionStatus(&domain.WorkOrder{
		Status:      domain.StatusCompleted,
		CreatedAt:   t0.Add(-time.Hour),
		SlaDue:      &due,
		CompletedAt: &completedAt,
	})
	assert.Equal(t, StateCompleted, info.State)
	require.NotNil(t, info.MetSLA)
	assert.False(t, *info.MetSLA)
}

func TestComplianceVacuousCase(t *testing.T) {
	got := CalculateSLACompliance(nil, testPolicies())
	assert.Equal(t, ComplianceReport{CompliancePercent: 100}, got)
	got = CalculateSLACompliance([]domain.WorkOrder{}, nil)
	assert.Equal(t, ComplianceReport{CompliancePercent: 100}, got)
}

func TestComplianceUsesPriorityTiers(t *testing.T) {
	orders := []domain.WorkOrder{
		// within 24h
		{Status: domain.StatusCompleted, ServiceCategoryID: ptr("brakes"), Priority: domain.PriorityLow, CreatedAt: t0, CompletedAt: ptr(t0.Add(20 * time.Hour))},
		// exactly on the deadline counts as within
		{Status: domain.StatusCompleted, ServiceCategoryID: ptr("brakes"), Priority: domain.PriorityLow, CreatedAt: t0, CompletedAt: ptr(t0.Add(24 * time.Hour))},
		// high tyres have a 2h tier
		{Status: domain.StatusCompleted, ServiceCategoryID: ptr("tyres"), Priority: domain.PriorityHigh, CreatedAt: t0, CompletedAt: ptr(t0.Add(3 * time.Hour))},
		// medium tyres fall back to 4h resolution
		{Status: domain.StatusCompleted, ServiceCategoryID: ptr("tyres"), Priority: domain.PriorityMedium, CreatedAt: t0, CompletedAt: ptr(t0.Add(3 * time.Hour))},
		// skipped: no budget, not completed, no completion time
		{Status: domain.StatusCompleted, ServiceCategoryID: ptr("paint"), CreatedAt: t0, CompletedAt: ptr(t0.Add(time.Hour))},
		{Status: domain.StatusInProgress, ServiceCategoryID: ptr("brakes"), CreatedAt: t0},
		{Status: domain.StatusCompleted, ServiceCategoryID: ptr("brakes"), CreatedAt: t0},
	}
	got := CalculateSLACompliance(orders, testPolicies())
	assert.Equal(t, 4, got.TotalCompleted)
	assert.Equal(t, 3, got.CompletedWithinSLA)
	assert.Equal(t, 1, got.CompletedOutsideSLA)
	assert.InDelta(t, 75.0, got.CompliancePercent, 0.0001)
}

func TestNewEngineDefaultsWarningThreshold(t *testing.T) {
	assert.Equal(t, DefaultWarningThreshold, NewEngine(Config{WarningThreshold: 3}, nil).WarningThreshold())
	assert.Equal(t, 0.5, NewEngine(Config{WarningThreshold: 0.5}, nil).WarningThreshold())
}
