package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const middlewareTestSecret = "test-secret-key-for-middleware-tests"

// rejectionBody mirrors dto.APIResponse with a typed error detail
type rejectionBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   dto.ErrorDetail `json:"error"`
}

func newTestApp(t *testing.T) (*fiber.App, services.TokenService) {
	t.Helper()

	tokenService, err := services.NewTokenService(15*time.Minute, 24*time.Hour, "prior-art-portal", "portal-clients", false, "", "", middlewareTestSecret)
	require.NoError(t, err)

	m := NewAuthMiddleware(tokenService)
	app := fiber.New()
	app.Get("/protected", m.Authenticate(), func(c fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		require.True(t, ok)
		return c.JSON(fiber.Map{"user_id": userID})
	})
	app.Get("/admin", m.RequireAdmin(), func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	return app, tokenService
}

func TestAuthenticateRejections(t *testing.T) {
	app, svc := newTestApp(t)

	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body rejectionBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", body.Error.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body rejectionBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "TOKEN_INVALID", body.Error.Code)
	})

	t.Run("wrong authorization scheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		expiredSvc, err := services.NewTokenService(-time.Minute, 24*time.Hour, "prior-art-portal", "portal-clients", false, "", "", middlewareTestSecret)
		require.NoError(t, err)
		access, _, err := expiredSvc.GenerateTokens(7, string(models.RoleRegular))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body rejectionBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "TOKEN_EXPIRED", body.Error.Code)
	})

	t.Run("refresh token cannot access the API", func(t *testing.T) {
		_, refresh, err := svc.GenerateTokens(7, string(models.RoleRegular))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+refresh)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token passes through", func(t *testing.T) {
		access, _, err := svc.GenerateTokens(7, string(models.RoleRegular))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestRequireAdmin(t *testing.T) {
	app, svc := newTestApp(t)

	t.Run("rejects an unauthenticated request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects a non-admin token", func(t *testing.T) {
		access, _, err := svc.GenerateTokens(7, string(models.RoleRegular))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("admits an admin token", func(t *testing.T) {
		access, _, err := svc.GenerateTokens(1, string(models.RoleAdmin))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
