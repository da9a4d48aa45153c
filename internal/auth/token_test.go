package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/workorder-service/internal/domain"
	apperrors "github.com/fleetops/workorder-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	location := "loc-7"
	staff := &domain.StaffMember{ID: "staff-1", Role: domain.StaffRoleTechnician, LocationID: &location}
	tm := NewTokenManager("secret", "workorder-service", 0)
	issued := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	tm.now = func() time.Time { return issued }

	token, exp, err := tm.GenerateToken(staff)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Hour), exp, "default ttl")

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	assert.Error(t, err, "expired")

	tm = NewTokenManager("secret", "workorder-service", 5)
	token, _, err = tm.GenerateToken(staff)
	require.NoError(t, err)
	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.Subject)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Kind)
	assert.Equal(t, domain.StaffRoleTechnician, claims.Role)
	require.NotNil(t, claims.LocationID)
	assert.Equal(t, "loc-7", *claims.LocationID)
}

func TestParseTokenRejectsForgeries(t *testing.T) {
	staff := &domain.StaffMember{ID: "staff-1", Role: domain.StaffRoleAdmin}
	tm := NewTokenManager("secret", "workorder-service", 5)

	other := NewTokenManager("other-secret", "workorder-service", 5)
	token, _, err := other.GenerateToken(staff)
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.Error(t, err, "wrong key")

	foreign := NewTokenManager("secret", "elsewhere", 5)
	token, _, err = foreign.GenerateToken(staff)
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.Error(t, err, "wrong issuer")

	token, _, err = tm.GenerateToken(staff)
	require.NoError(t, err)
	_, err = tm.ParseToken(token[:len(token)-2] + "xx")
	assert.Error(t, err, "tampered signature")

	_, _, err = tm.GenerateToken(&domain.StaffMember{})
	assert.Error(t, err)
}

func TestRequireStaffRole(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		if role := c.Get("X-Role"); role != "" {
			WithPrincipal(c, &Principal{
				SubjectType: domain.SubjectTypeStaff,
				Staff:       &domain.StaffMember{ID: "s", Role: domain.StaffRole(role)},
			})
		}
		return c.Next()
	})
	app.Get("/admin", RequireStaffRole(domain.StaffRoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	cases := []struct {
		role domain.StaffRole
		want int
	}{
		{"", fiber.StatusUnauthorized},
		{domain.StaffRoleTechnician, fiber.StatusForbidden},
		{domain.StaffRoleAdmin, fiber.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
		if tc.role != "" {
			req.Header.Set("X-Role", string(tc.role))
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, "role %q", tc.role)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", 1)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2"))
	assert.Error(t, ComparePassword(hash, "hunter3"))
	assert.Error(t, ComparePassword("", "hunter2"))

	_, err = HashPassword("", 4)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
