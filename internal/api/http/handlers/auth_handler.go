package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/workorder-service/internal/api/dto"
	"github.com/fleetops/workorder-service/internal/domain"
	"github.com/fleetops/workorder-service/internal/service"
)

// AuthHandler exposes staff login.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /auth/staff/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	staff, token, exp, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:         staff.ID,
		Name:       staff.Name,
		Email:      staff.Email,
		Role:       staff.Role,
		LocationID: staff.LocationID,
	}
}
