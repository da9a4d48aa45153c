package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/workorder-service/internal/domain"
)

// SlaPolicyRepository stores SLA policies keyed by service category.
type SlaPolicyRepository interface {
	List(ctx context.Context) ([]domain.SlaPolicy, error)
	GetByCategory(ctx context.Context, categoryID string) (*domain.SlaPolicy, error)
	Upsert(ctx context.Context, policy *domain.SlaPolicy) error
	Delete(ctx context.Context, categoryID string) error
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSlaPolicyRepository instantiates repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) SlaPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const slaPolicyColumns = `service_category_id, name, resolution_hours, first_response_hours, response_hours,
               repair_hours, COALESCE(priority_hours, '{}'::jsonb), created_at, updated_at`

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+slaPolicyColumns+` FROM sla_policies ORDER BY service_category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		policy, err := scanSlaPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func (r *slaPolicyRepository) GetByCategory(ctx context.Context, categoryID string) (*domain.SlaPolicy, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+slaPolicyColumns+` FROM sla_policies WHERE service_category_id=$1`, categoryID)
	return scanSlaPolicy(row)
}

func (r *slaPolicyRepository) Upsert(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (service_category_id, name, resolution_hours, first_response_hours,
            response_hours, repair_hours, priority_hours)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (service_category_id) DO UPDATE SET
            name=EXCLUDED.name,
            resolution_hours=EXCLUDED.resolution_hours,
            first_response_hours=EXCLUDED.first_response_hours,
            response_hours=EXCLUDED.response_hours,
            repair_hours=EXCLUDED.repair_hours,
            priority_hours=EXCLUDED.priority_hours,
            updated_at=NOW()
        RETURNING created_at, updated_at`
	priorityHours := policy.PriorityHours
	if priorityHours == nil {
		priorityHours = map[domain.WorkOrderPriority]float64{}
	}
	return r.pool.QueryRow(ctx, query,
		policy.ServiceCategoryID,
		policy.Name,
		policy.ResolutionHours,
		policy.FirstResponseHours,
		policy.ResponseHours,
		policy.RepairHours,
		priorityHours,
	).Scan(&policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Delete(ctx context.Context, categoryID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sla_policies WHERE service_category_id=$1`, categoryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanSlaPolicy(row pgx.Row) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	if err := row.Scan(
		&policy.ServiceCategoryID,
		&policy.Name,
		&policy.ResolutionHours,
		&policy.FirstResponseHours,
		&policy.ResponseHours,
		&policy.RepairHours,
		&policy.PriorityHours,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}
