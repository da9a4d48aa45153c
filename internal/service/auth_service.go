package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fleetops/workorder-service/internal/auth"
	"github.com/fleetops/workorder-service/internal/config"
	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/repository"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

// AuthService coordinates staff login.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, staff repository.StaffRepository) *AuthService {
	return &AuthService{
		staff:      staff,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// EnsureAdmin creates an active administrator with the given email unless a staff member
// with that email already exists. The boolean reports whether a row was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*domain.StaffMember, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, false, apperrors.NewValidationError("email and password are required", nil)
	}
	existing, err := s.staff.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	admin := &domain.StaffMember{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.StaffRoleAdmin,
		Active:       true,
	}
	if err := s.staff.Create(ctx, admin); err != nil {
		return nil, false, apperrors.MapError(err)
	}
	return admin, true, nil
}

// LoginStaff authenticates staff and returns role-bearing token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password are required", nil)
	}
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff inactive")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return staff, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
