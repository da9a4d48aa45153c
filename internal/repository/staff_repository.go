package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/workorder-service/internal/domain"
)

// StaffRepository reads technicians, dispatchers and administrators.
type StaffRepository interface {
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	Create(ctx context.Context, staff *domain.StaffMember) error
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, email, password_hash, role, location_id, active_flag, created_at, updated_at`

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	return scanStaff(r.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE id=$1`, id))
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	return scanStaff(r.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE LOWER(email)=LOWER($1)`, email))
}

// Create inserts a staff member and fills in the generated id and timestamps.
func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO staff_members (name, email, password_hash, role, location_id, active_flag)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		staff.Name, staff.Email, staff.PasswordHash, staff.Role, staff.LocationID, staff.Active,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func scanStaff(row pgx.Row) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := row.Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.LocationID,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}
