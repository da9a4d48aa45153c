package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/workorder-service/internal/domain"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

// WorkOrderFilter captures listing parameters.
type WorkOrderFilter struct {
	Statuses             []domain.WorkOrderStatus
	ExcludeStatuses      []domain.WorkOrderStatus
	Priorities           []domain.WorkOrderPriority
	AssignedTechnicianID *string
	ServiceCategoryID    *string
	LocationID           *string
	Channel              *string
	SearchTerm           *string
	CreatedFrom          *time.Time
	CreatedTo            *time.Time
	CompletedFrom        *time.Time
	CompletedTo          *time.Time
	Limit                int
	Offset               int
}

// WorkOrderRepository encapsulates work order persistence. Writes are optimistic: Save
// only succeeds when the stored version still equals expectedVersion.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *domain.WorkOrder, entries []domain.ActivityEntry) error
	Save(ctx context.Context, wo *domain.WorkOrder, expectedVersion int64, entries []domain.ActivityEntry) error
	GetByID(ctx context.Context, id string) (*domain.WorkOrder, error)
	GetByNumber(ctx context.Context, number string) (*domain.WorkOrder, error)
	List(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error)
}

type workOrderRepository struct {
	pool *pgxpool.Pool
}

// NewWorkOrderRepository instantiates repository.
func NewWorkOrderRepository(pool *pgxpool.Pool) WorkOrderRepository {
	return &workOrderRepository{pool: pool}
}

const workOrderColumns = `id, number, title, description, status, priority, channel,
               service_category_id, assigned_technician_id, location_id, customer_id, vehicle_id,
               created_at, updated_at, confirmed_at, work_started_at, completed_at,
               sla_due, sla_timers_paused_at, total_paused_duration_seconds,
               COALESCE(status_entered_at, '{}'::jsonb), version`

func (r *workOrderRepository) Create(ctx context.Context, wo *domain.WorkOrder, entries []domain.ActivityEntry) error {
	const query = `
        INSERT INTO work_orders (number, title, description, status, priority, channel,
            service_category_id, assigned_technician_id, location_id, customer_id, vehicle_id,
            created_at, updated_at, sla_due, total_paused_duration_seconds, status_entered_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12,$13,$14,$15,1)
        RETURNING id, version`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.QueryRow(ctx, query,
		wo.Number,
		wo.Title,
		wo.Description,
		wo.Status,
		wo.Priority,
		wo.Channel,
		wo.ServiceCategoryID,
		wo.AssignedTechnicianID,
		wo.LocationID,
		wo.CustomerID,
		wo.VehicleID,
		wo.CreatedAt,
		wo.SlaDue,
		wo.TotalPausedDurationSeconds,
		statusTable(wo.StatusEnteredAt),
	).Scan(&wo.ID, &wo.Version); err != nil {
		return err
	}
	wo.UpdatedAt = wo.CreatedAt
	if err := insertActivity(ctx, tx, wo.ID, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *workOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder, expectedVersion int64, entries []domain.ActivityEntry) error {
	const query = `
        UPDATE work_orders SET title=$1, description=$2, status=$3, priority=$4, channel=$5,
            service_category_id=$6, assigned_technician_id=$7, location_id=$8, customer_id=$9, vehicle_id=$10,
            confirmed_at=$11, work_started_at=$12, completed_at=$13, sla_due=$14, sla_timers_paused_at=$15,
            total_paused_duration_seconds=$16, status_entered_at=$17, version=version+1, updated_at=NOW()
        WHERE id=$18 AND version=$19
        RETURNING version, updated_at`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, query,
		wo.Title,
		wo.Description,
		wo.Status,
		wo.Priority,
		wo.Channel,
		wo.ServiceCategoryID,
		wo.AssignedTechnicianID,
		wo.LocationID,
		wo.CustomerID,
		wo.VehicleID,
		wo.ConfirmedAt,
		wo.WorkStartedAt,
		wo.CompletedAt,
		wo.SlaDue,
		wo.SlaTimersPausedAt,
		wo.TotalPausedDurationSeconds,
		statusTable(wo.StatusEnteredAt),
		wo.ID,
		expectedVersion,
	).Scan(&wo.Version, &wo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrStale(ctx, tx, wo.ID)
		}
		return err
	}
	if err := insertActivity(ctx, tx, wo.ID, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *workOrderRepository) missingOrStale(ctx context.Context, tx pgx.Tx, id string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM work_orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return apperrors.ErrStaleVersion
}

func (r *workOrderRepository) GetByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *workOrderRepository) GetByNumber(ctx context.Context, number string) (*domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *workOrderRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.WorkOrder, error) {
	wo, err := scanWorkOrder(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return wo, nil
}

func (r *workOrderRepository) List(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(&args, toAny(filter.Statuses))+")")
	}
	if len(filter.ExcludeStatuses) > 0 {
		clauses = append(clauses, "status NOT IN ("+placeholders(&args, toAny(filter.ExcludeStatuses))+")")
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, "priority IN ("+placeholders(&args, toAny(filter.Priorities))+")")
	}
	if filter.AssignedTechnicianID != nil {
		args = append(args, *filter.AssignedTechnicianID)
		clauses = append(clauses, fmt.Sprintf("assigned_technician_id=$%d", len(args)))
	}
	if filter.ServiceCategoryID != nil {
		args = append(args, *filter.ServiceCategoryID)
		clauses = append(clauses, fmt.Sprintf("service_category_id=$%d", len(args)))
	}
	if filter.LocationID != nil {
		args = append(args, *filter.LocationID)
		clauses = append(clauses, fmt.Sprintf("location_id=$%d", len(args)))
	}
	if filter.Channel != nil {
		args = append(args, strings.ToLower(*filter.Channel))
		clauses = append(clauses, fmt.Sprintf("LOWER(channel)=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.CompletedFrom != nil {
		args = append(args, *filter.CompletedFrom)
		clauses = append(clauses, fmt.Sprintf("completed_at >= $%d", len(args)))
	}
	if filter.CompletedTo != nil {
		args = append(args, *filter.CompletedTo)
		clauses = append(clauses, fmt.Sprintf("completed_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(number) LIKE %s OR LOWER(title) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM work_orders WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		workOrderColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *wo)
	}
	return result, rows.Err()
}

func scanWorkOrder(row pgx.Row) (*domain.WorkOrder, error) {
	var wo domain.WorkOrder
	if err := row.Scan(
		&wo.ID,
		&wo.Number,
		&wo.Title,
		&wo.Description,
		&wo.Status,
		&wo.Priority,
		&wo.Channel,
		&wo.ServiceCategoryID,
		&wo.AssignedTechnicianID,
		&wo.LocationID,
		&wo.CustomerID,
		&wo.VehicleID,
		&wo.CreatedAt,
		&wo.UpdatedAt,
		&wo.ConfirmedAt,
		&wo.WorkStartedAt,
		&wo.CompletedAt,
		&wo.SlaDue,
		&wo.SlaTimersPausedAt,
		&wo.TotalPausedDurationSeconds,
		&wo.StatusEnteredAt,
		&wo.Version,
	); err != nil {
		return nil, err
	}
	wo.Canonicalize()
	return &wo, nil
}

func statusTable(m map[domain.WorkOrderStatus]time.Time) map[domain.WorkOrderStatus]time.Time {
	if m == nil {
		return map[domain.WorkOrderStatus]time.Time{}
	}
	return m
}

func placeholders(args *[]any, values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		parts[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(parts, ",")
}

func toAny[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
