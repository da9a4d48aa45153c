package dto

import (
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Role       domain.StaffRole `json:"role"`
	LocationID *string          `json:"location_id"`
}
