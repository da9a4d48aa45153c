package repository

import (
	"context"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/sla"
)

const activityPageSize = 200

// ActivityRepository reads the append-only work order activity log.
type ActivityRepository interface {
	// ListByWorkOrder pages the log oldest-first.
	ListByWorkOrder(ctx context.Context, workOrderID string, limit, offset int) ([]domain.ActivityEntry, error)
	// ListRecent pages the log newest-first.
	ListRecent(ctx context.Context, workOrderID string, limit, offset int) ([]domain.ActivityEntry, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) ListByWorkOrder(ctx context.Context, workOrderID string, limit, offset int) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT id, work_order_id, occurred_at, activity, user_id
        FROM work_order_activity WHERE work_order_id=$1
        ORDER BY occurred_at ASC, id ASC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, workOrderID, limit, offset)
}

func (r *activityRepository) ListRecent(ctx context.Context, workOrderID string, limit, offset int) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT id, work_order_id, occurred_at, activity, user_id
        FROM work_order_activity WHERE work_order_id=$1
        ORDER BY occurred_at DESC, id DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, workOrderID, limit, offset)
}

func (r *activityRepository) list(ctx context.Context, query, workOrderID string, limit, offset int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = activityPageSize
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, query, workOrderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityEntry
	for rows.Next() {
		var entry domain.ActivityEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.WorkOrderID,
			&entry.Timestamp,
			&entry.Activity,
			&entry.UserID,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// LoadEntryLog pages an order's log newest-first until the line recording entry into its
// current status is loaded or the log runs out. The result is oldest-first.
func LoadEntryLog(ctx context.Context, repo ActivityRepository, wo *domain.WorkOrder, pageSize int) ([]domain.ActivityEntry, error) {
	if pageSize <= 0 {
		pageSize = activityPageSize
	}
	scratch := *wo
	var recent []domain.ActivityEntry
	for offset := 0; ; offset += pageSize {
		page, err := repo.ListRecent(ctx, wo.ID, pageSize, offset)
		if err != nil {
			return nil, err
		}
		recent = append(recent, page...)
		scratch.ActivityLog = recent
		if len(page) < pageSize || sla.StatusEntryTime(&scratch).Known() {
			break
		}
	}
	slices.Reverse(recent)
	return recent, nil
}

// insertActivity appends entries inside the caller's transaction so the log and the
// row it describes commit together.
func insertActivity(ctx context.Context, tx pgx.Tx, workOrderID string, entries []domain.ActivityEntry) error {
	const query = `
        INSERT INTO work_order_activity (work_order_id, occurred_at, activity, user_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	for i := range entries {
		entry := &entries[i]
		entry.WorkOrderID = workOrderID
		if err := tx.QueryRow(ctx, query,
			workOrderID,
			entry.Timestamp,
			entry.Activity,
			entry.UserID,
		).Scan(&entry.ID); err != nil {
			return err
		}
	}
	return nil
}
