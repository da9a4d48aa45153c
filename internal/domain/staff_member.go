package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleTechnician StaffRole = "TECHNICIAN"
	StaffRoleDispatcher StaffRole = "DISPATCHER"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// StaffMember models a technician, dispatcher or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	LocationID   *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
