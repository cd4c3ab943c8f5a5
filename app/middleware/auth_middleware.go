// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, code, message := m.validateRequest(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error:   dto.ErrorDetail{Code: code},
			})
		}

		// Store user information in context for downstream handlers
		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals("token_claims", claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireAdmin validates the token and rejects non-admin roles. The business
// layer re-checks the stored role, so a stale claim cannot outlive a
// demotion.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, code, message := m.validateRequest(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error:   dto.ErrorDetail{Code: code},
			})
		}

		if claims.Role != string(models.RoleAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Admin access required",
				Error:   dto.ErrorDetail{Code: "FORBIDDEN"},
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals("token_claims", claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// validateRequest extracts and validates the Bearer token from the request.
// On failure the claims are nil and the code/message pair describes the
// rejection for the 401 response the caller emits.
func (m *AuthMiddleware) validateRequest(c fiber.Ctx) (*services.TokenClaims, string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, "MISSING_AUTHORIZATION_HEADER", "Authorization header is required"
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'"
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return nil, "MISSING_ACCESS_TOKEN", "Access token is required"
	}

	claims, err := m.tokenService.ValidateToken(token)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			return nil, "TOKEN_EXPIRED", "Access token has expired"
		}
		if errors.Is(err, services.ErrTokenInvalid) {
			return nil, "TOKEN_INVALID", "Invalid access token"
		}
		return nil, "TOKEN_VALIDATION_FAILED", "Token validation failed"
	}

	if claims.TokenType != "access" {
		return nil, "TOKEN_INVALID", "Refresh tokens cannot access API endpoints"
	}

	return claims, "", ""
}
