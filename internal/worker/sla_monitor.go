package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/events"
	"github.com/fleetops/workorder-service/internal/observability"
	"github.com/fleetops/workorder-service/internal/repository"
	"github.com/fleetops/workorder-service/internal/sla"
)

const (
	ModelDwell      = "dwell"
	ModelResolution = "resolution"

	defaultScanInterval = time.Minute
	defaultBatchSize    = 200
	defaultDedupeTTL    = 24 * time.Hour
	alertKeyPrefix      = "sla:alert"
)

// WorkOrderLister pages through work orders.
type WorkOrderLister interface {
	List(ctx context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error)
}

// SLAMonitorConfig tunes the monitor loop.
type SLAMonitorConfig struct {
	Interval  time.Duration
	BatchSize int
	DedupeTTL time.Duration
}

// SLAMonitorDependencies bundles collaborators for the monitor.
type SLAMonitorDependencies struct {
	Orders     WorkOrderLister
	Activity   repository.ActivityRepository
	Engine     *sla.Engine
	Dispatcher events.Dispatcher
	Lock       Lock
	Dedupe     redisStore
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// ScanResult summarizes one monitor pass.
type ScanResult struct {
	Skipped bool
	Scanned int
	Alerts  int
	Dwell   map[string]int
	Overall map[string]int
}

// SLAMonitor periodically classifies open work orders and raises at-risk and breach
// alerts once per order, status and state.
type SLAMonitor struct {
	deps SLAMonitorDependencies
	cfg  SLAMonitorConfig
}

// NewSLAMonitor builds a monitor. Lock and Dedupe may be nil for single-replica setups.
func NewSLAMonitor(deps SLAMonitorDependencies, cfg SLAMonitorConfig) (*SLAMonitor, error) {
	if deps.Orders == nil {
		return nil, errors.New("work order lister required")
	}
	if deps.Engine == nil {
		return nil, errors.New("sla engine required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultScanInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = defaultDedupeTTL
	}
	return &SLAMonitor{deps: deps, cfg: cfg}, nil
}

// Run scans on every tick until ctx is cancelled.
func (m *SLAMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.deps.Logger.Info("sla monitor started", zap.Duration("interval", m.cfg.Interval))
	for {
		if _, err := m.ScanOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.deps.Logger.Error("sla monitor scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			m.deps.Logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// ScanOnce performs a single pass. It is skipped when another replica holds the lock.
func (m *SLAMonitor) ScanOnce(ctx context.Context) (ScanResult, error) {
	result := ScanResult{Dwell: map[string]int{}, Overall: map[string]int{}}

	if m.deps.Lock != nil {
		acquired, err := m.deps.Lock.Acquire(ctx)
		if err != nil {
			return result, fmt.Errorf("acquire monitor lock: %w", err)
		}
		if !acquired {
			result.Skipped = true
			return result, nil
		}
		defer func() {
			if err := m.deps.Lock.Release(context.WithoutCancel(ctx)); err != nil {
				m.deps.Logger.Warn("release monitor lock", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	for offset := 0; ; offset += m.cfg.BatchSize {
		batch, err := m.deps.Orders.List(ctx, repository.WorkOrderFilter{
			ExcludeStatuses: []domain.WorkOrderStatus{domain.StatusCompleted, domain.StatusCancelled},
			Limit:           m.cfg.BatchSize,
			Offset:          offset,
		})
		if err != nil {
			return result, fmt.Errorf("list open work orders: %w", err)
		}
		for i := range batch {
			m.inspect(ctx, &batch[i], &result)
		}
		if len(batch) < m.cfg.BatchSize {
			break
		}
	}

	m.deps.Metrics.SetSLAStateCounts(ModelDwell, result.Dwell)
	m.deps.Metrics.SetSLAStateCounts(ModelResolution, result.Overall)
	m.deps.Metrics.ObserveScan(time.Since(start))
	m.deps.Logger.Debug("sla monitor scan complete",
		zap.Int("scanned", result.Scanned),
		zap.Int("alerts", result.Alerts))
	return result, nil
}

func (m *SLAMonitor) inspect(ctx context.Context, wo *domain.WorkOrder, result *ScanResult) {
	result.Scanned++
	m.withLegacyLog(ctx, wo)

	if dwell := m.deps.Engine.ClassifyStatus(wo); dwell != nil {
		result.Dwell[string(dwell.State)]++
		if dwell.State == sla.StateAtRisk || dwell.State == sla.StateBreached {
			m.alert(ctx, wo, result, events.SLAAlertPayload{
				Model:            ModelDwell,
				Status:           wo.Status,
				State:            string(dwell.State),
				TargetMinutes:    int64(dwell.TargetMinutes),
				ElapsedMinutes:   int64(dwell.ElapsedMinutes),
				RemainingMinutes: int64(dwell.RemainingMinutes),
				Percentage:       dwell.RawPercentage,
				EnteredAt:        &dwell.EnteredAt,
			})
		}
	} else {
		result.Dwell[string(sla.StateNoSLA)]++
	}

	overall := m.deps.Engine.ResolutionStatus(wo)
	result.Overall[string(overall.State)]++
	if overall.State == sla.StateAtRisk || overall.State == sla.StateOverdue {
		m.alert(ctx, wo, result, events.SLAAlertPayload{
			Model:            ModelResolution,
			Status:           wo.Status,
			State:            string(overall.State),
			TargetMinutes:    int64(overall.TargetMinutes),
			ElapsedMinutes:   int64(overall.ElapsedMinutes),
			RemainingMinutes: int64(overall.RemainingMinutes),
			Percentage:       overall.RawPercentage,
		})
	}
}

// withLegacyLog loads the activity log for orders whose entry time cannot be resolved
// from stored fields.
func (m *SLAMonitor) withLegacyLog(ctx context.Context, wo *domain.WorkOrder) {
	if m.deps.Activity == nil || sla.StatusEntryTime(wo).Known() {
		return
	}
	log, err := repository.LoadEntryLog(ctx, m.deps.Activity, wo, 0)
	if err != nil {
		m.deps.Logger.Warn("load activity log", zap.String("work_order_id", wo.ID), zap.Error(err))
		return
	}
	wo.ActivityLog = log
}

func (m *SLAMonitor) alert(ctx context.Context, wo *domain.WorkOrder, result *ScanResult, payload events.SLAAlertPayload) {
	if !m.firstAlert(ctx, wo, payload) {
		return
	}
	eventType := events.EventWorkOrderSLAAtRisk
	if payload.State != string(sla.StateAtRisk) {
		eventType = events.EventWorkOrderSLABreached
	}
	result.Alerts++
	m.deps.Metrics.RecordSLAAlert(payload.Model, payload.State)
	if m.deps.Dispatcher == nil {
		return
	}
	event := events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		WorkOrderID: wo.ID,
		Actor:       events.Actor{Type: domain.SubjectTypeSystem},
		Timestamp:   m.deps.Engine.Now(),
		Payload:     payload,
	}
	if err := m.deps.Dispatcher.Publish(ctx, event); err != nil {
		m.deps.Logger.Warn("sla alert handler failed", zap.String("work_order_id", wo.ID), zap.Error(err))
	}
}

// firstAlert claims the dedupe key for this alert. Redis errors let the alert through.
func (m *SLAMonitor) firstAlert(ctx context.Context, wo *domain.WorkOrder, payload events.SLAAlertPayload) bool {
	if m.deps.Dedupe == nil {
		return true
	}
	var enteredAt time.Time
	if payload.EnteredAt != nil {
		enteredAt = *payload.EnteredAt
	}
	key := AlertKey(payload.Model, wo.ID, wo.Status, payload.State, enteredAt)
	ok, err := m.deps.Dedupe.SetNX(ctx, key, m.deps.Engine.Now().Unix(), m.cfg.DedupeTTL)
	if err != nil {
		m.deps.Logger.Warn("sla alert dedupe failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// AlertKey is the Redis key that suppresses repeats of one alert. A non-zero enteredAt
// scopes the key to one stay in the status, so re-entering it can alert again.
func AlertKey(model, workOrderID string, status domain.WorkOrderStatus, state string, enteredAt time.Time) string {
	key := fmt.Sprintf("%s:%s:%s:%s:%s", alertKeyPrefix, model, workOrderID, status, state)
	if enteredAt.IsZero() {
		return key
	}
	return fmt.Sprintf("%s:%d", key, enteredAt.Unix())
}
