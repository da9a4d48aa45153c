package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/workorder-service/internal/domain"
)

func TestParseStatusThresholds(t *testing.T) {
	got, err := ParseStatusThresholds(" open=30, in progress = 1440 ,On Hold=2880,")
	require.NoError(t, err)
	assert.Equal(t, map[domain.WorkOrderStatus]int{
		domain.StatusOpen:       30,
		domain.StatusInProgress: 1440,
		domain.StatusOnHold:     2880,
	}, got)

	got, err = ParseStatusThresholds("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseStatusThresholdsRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"Ready", "Archived=10", "Ready=abc", "Ready=0", "Ready=-5"} {
		_, err := ParseStatusThresholds(raw)
		assert.Error(t, err, raw)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLA_STATUS_THRESHOLDS", "")
	t.Setenv("SLA_WARNING_THRESHOLD", "")
	t.Setenv("SLA_MONITOR_INTERVAL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.SLA.WarningThreshold)
	assert.Equal(t, 1440, cfg.SLA.StatusThresholds[domain.StatusInProgress])
	assert.Equal(t, domain.ChannelServiceCenter, cfg.SLA.ServiceCenterChannel)
	assert.Equal(t, time.Minute, cfg.SLA.MonitorInterval())
}

func TestLoadRejectsBadWarningThreshold(t *testing.T) {
	t.Setenv("SLA_WARNING_THRESHOLD", "1.5")
	_, err := Load()
	assert.Error(t, err)
}

func TestSLADurations(t *testing.T) {
	cfg := SLAConfig{}
	assert.Zero(t, cfg.MonitorInterval())
	assert.Zero(t, cfg.PolicyCacheTTL())
	assert.Equal(t, 24*time.Hour, cfg.AlertDedupeTTL())

	cfg = SLAConfig{MonitorIntervalSeconds: 5, PolicyCacheTTLSeconds: 30, AlertDedupeTTLMinutes: 10}
	assert.Equal(t, 5*time.Second, cfg.MonitorInterval())
	assert.Equal(t, 30*time.Second, cfg.PolicyCacheTTL())
	assert.Equal(t, 10*time.Minute, cfg.AlertDedupeTTL())
}
