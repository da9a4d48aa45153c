package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/events"
	"github.com/fleetops/workorder-service/internal/repository"
	"github.com/fleetops/workorder-service/internal/sla"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type stubOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]*domain.WorkOrder
	activity map[string][]domain.ActivityEntry
	seq      int
	saves    int
	saveErr  error
	listErr  error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders:   map[string]*domain.WorkOrder{},
		activity: map[string][]domain.ActivityEntry{},
	}
}

func (r *stubOrderRepo) Create(_ context.Context, wo *domain.WorkOrder, entries []domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	wo.ID = fmt.Sprintf("wo-%d", r.seq)
	wo.Version = 1
	wo.UpdatedAt = wo.CreatedAt
	r.orders[wo.ID] = wo.Clone()
	r.appendEntries(wo.ID, entries)
	return nil
}

func (r *stubOrderRepo) Save(_ context.Context, wo *domain.WorkOrder, expectedVersion int64, entries []domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.orders[wo.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != expectedVersion {
		return apperrors.ErrStaleVersion
	}
	r.saves++
	wo.Version = expectedVersion + 1
	r.orders[wo.ID] = wo.Clone()
	r.appendEntries(wo.ID, entries)
	return nil
}

func (r *stubOrderRepo) appendEntries(id string, entries []domain.ActivityEntry) {
	for i := range entries {
		entries[i].WorkOrderID = id
		r.activity[id] = append(r.activity[id], entries[i])
	}
}

func (r *stubOrderRepo) GetByID(_ context.Context, id string) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wo, ok := r.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return wo.Clone(), nil
}

func (r *stubOrderRepo) GetByNumber(_ context.Context, number string) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wo := range r.orders {
		if wo.Number == number {
			return wo.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubOrderRepo) List(_ context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	ids := make([]string, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matched []domain.WorkOrder
	for _, id := range ids {
		wo := r.orders[id]
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, wo.Status) {
			continue
		}
		if len(filter.ExcludeStatuses) > 0 && containsStatus(filter.ExcludeStatuses, wo.Status) {
			continue
		}
		if filter.CompletedFrom != nil && (wo.CompletedAt == nil || wo.CompletedAt.Before(*filter.CompletedFrom)) {
			continue
		}
		if filter.CompletedTo != nil && (wo.CompletedAt == nil || wo.CompletedAt.After(*filter.CompletedTo)) {
			continue
		}
		matched = append(matched, *wo.Clone())
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// put stores an order directly, bypassing Create.
func (r *stubOrderRepo) put(wo *domain.WorkOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wo.Version == 0 {
		wo.Version = 1
	}
	r.orders[wo.ID] = wo.Clone()
}

func (r *stubOrderRepo) ListByWorkOrder(_ context.Context, id string, limit, offset int) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pageEntries(r.activity[id], limit, offset), nil
}

func (r *stubOrderRepo) ListRecent(_ context.Context, id string, limit, offset int) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	entries := append([]domain.ActivityEntry(nil), r.activity[id]...)
	r.mu.Unlock()
	slices.Reverse(entries)
	return pageEntries(entries, limit, offset), nil
}

func pageEntries(entries []domain.ActivityEntry, limit, offset int) []domain.ActivityEntry {
	if offset >= len(entries) {
		return []domain.ActivityEntry{}
	}
	entries = entries[offset:]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]domain.ActivityEntry(nil), entries...)
}

func containsStatus(list []domain.WorkOrderStatus, status domain.WorkOrderStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

type stubStaffRepo struct {
	members map[string]*domain.StaffMember
}

func (r *stubStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	if m, ok := r.members[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubStaffRepo) Create(_ context.Context, m *domain.StaffMember) error {
	if r.members == nil {
		r.members = map[string]*domain.StaffMember{}
	}
	m.ID = fmt.Sprintf("staff-%d", len(r.members)+1)
	cp := *m
	r.members[m.ID] = &cp
	return nil
}

func (r *stubStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, m := range r.members {
		if m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type staticPolicies struct {
	set sla.PolicySet
	err error
}

func (p staticPolicies) PolicySet(context.Context) (sla.PolicySet, error) {
	return p.set, p.err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type stubPolicyRepo struct {
	policies map[string]domain.SlaPolicy
	lists    int
}

func (r *stubPolicyRepo) List(context.Context) ([]domain.SlaPolicy, error) {
	r.lists++
	keys := make([]string, 0, len(r.policies))
	for k := range r.policies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.SlaPolicy, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.policies[k])
	}
	return out, nil
}

func (r *stubPolicyRepo) GetByCategory(_ context.Context, id string) (*domain.SlaPolicy, error) {
	p, ok := r.policies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *stubPolicyRepo) Upsert(_ context.Context, p *domain.SlaPolicy) error {
	r.policies[p.ServiceCategoryID] = *p
	return nil
}

func (r *stubPolicyRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.policies[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.policies, id)
	return nil
}

type memoryCache struct {
	values  map[string]string
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	if c.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := c.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.values[key] = value.(string)
	return nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
