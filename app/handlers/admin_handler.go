// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mmsu/prior-art-portal/app/dto"
	businessflow "github.com/mmsu/prior-art-portal/business_flow"
)

// AdminHandlerInterface defines the contract for admin handlers
type AdminHandlerInterface interface {
	ListUsers(c fiber.Ctx) error
	ApproveUser(c fiber.Ctx) error
	DeactivateUser(c fiber.Ctx) error
	AdjustCredits(c fiber.Ctx) error
	BroadcastEmail(c fiber.Ctx) error
	DashboardStats(c fiber.Ctx) error
	ListAuditLogs(c fiber.Ctx) error
	ExportUsers(c fiber.Ctx) error
	ExportSubmissions(c fiber.Ctx) error
	ExportLedger(c fiber.Ctx) error
}

// AdminHandler handles administrative HTTP requests
type AdminHandler struct {
	adminFlow businessflow.AdminFlow
	validator *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminFlow businessflow.AdminFlow) *AdminHandler {
	return &AdminHandler{
		adminFlow: adminFlow,
		validator: validator.New(),
	}
}

func (h *AdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListUsers returns a page of portal users, optionally filtered by status
func (h *AdminHandler) ListUsers(c fiber.Ctx) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	page, pageSize := parsePagination(c)
	req := dto.ListUsersRequest{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.adminFlow.ListUsers(h.createRequestContext(c, "/api/v1/admin/users"), adminID, &req)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "FORBIDDEN", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list users", "ADMIN_LIST_USERS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Users retrieved", result)
}

// ApproveUser activates a pending account
func (h *AdminHandler) ApproveUser(c fiber.Ctx) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user ID", "INVALID_USER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.adminFlow.ApproveUser(h.createRequestContext(c, "/api/v1/admin/users/:id/approve"), adminID, userID, metadata)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "FORBIDDEN", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		if businessflow.IsUserNotPending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "User is not pending approval", "USER_NOT_PENDING", nil)
		}

		log.Println("User approval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User approval failed", "ADMIN_APPROVE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeactivateUser disables an account
func (h *AdminHandler) DeactivateUser(c fiber.Ctx) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user ID", "INVALID_USER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.adminFlow.DeactivateUser(h.createRequestContext(c, "/api/v1/admin/users/:id/deactivate"), adminID, userID, metadata)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Cannot deactivate this account", "FORBIDDEN", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}

		log.Println("User deactivation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User deactivation failed", "ADMIN_DEACTIVATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// AdjustCredits applies a manual balance change to an account
func (h *AdminHandler) AdjustCredits(c fiber.Ctx) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user ID", "INVALID_USER_ID", nil)
	}

	var req dto.AdjustCreditsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.adminFlow.AdjustCredits(h.createRequestContext(c, "/api/v1/admin/users/:id/credits"), adminID, userID, &req, metadata)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "FORBIDDEN", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		if businessflow.IsInvalidAdjustmentAmount(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Adjustment amount cannot be zero", "INVALID_ADJUSTMENT_AMOUNT", nil)
		}

		log.Println("Credit adjustment failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Credit adjustment failed", "ADMIN_ADJUST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// BroadcastEmail queues an announcement to every active user
func (h *AdminHandler) BroadcastEmail(c fiber.Ctx) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	var req dto.BroadcastEmailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.adminFlow.BroadcastEmail(h.createRequestContext(c, "/api/v1/admin/broadcast"), adminID, &req, metadata)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "FORBIDDEN", nil)
		}

		log.Println("Broadcast failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Broadcast failed", "ADMIN_BROADCAST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DashboardStats returns aggregate portal statistics
func (h *AdminHandler) DashboardStats(c fiber.Ctx) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.adminFlow.DashboardStats(h.createRequestContext(c, "/api/v1/admin/stats"), adminID)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "FORBIDDEN", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load stats", "ADMIN_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Stats retrieved", result)
}

// ListAuditLogs returns a page of the audit trail
func (h *AdminHandler) ListAuditLogs(c fiber.Ctx) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	page, pageSize := parsePagination(c)
	userID, _ := strconv.Atoi(c.Query("user_id", "0"))
	if userID < 0 {
		userID = 0
	}
	req := dto.ListAuditLogsRequest{
		Action:     c.Query("action"),
		UserID:     uint(userID),
		FailedOnly: c.Query("failed_only") == "true",
		Page:       page,
		PageSize:   pageSize,
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.adminFlow.ListAuditLogs(h.createRequestContext(c, "/api/v1/admin/audit-logs"), adminID, &req)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "FORBIDDEN", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list audit logs", "ADMIN_LIST_AUDIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audit logs retrieved", result)
}

// ExportUsers streams an XLSX workbook of all portal users
func (h *AdminHandler) ExportUsers(c fiber.Ctx) error {
	return h.export(c, "/api/v1/admin/users/export", h.adminFlow.ExportUsers)
}

// ExportSubmissions streams an XLSX workbook of all disclosures
func (h *AdminHandler) ExportSubmissions(c fiber.Ctx) error {
	return h.export(c, "/api/v1/admin/submissions/export", h.adminFlow.ExportSubmissions)
}

// ExportLedger streams an XLSX workbook of the credit ledger
func (h *AdminHandler) ExportLedger(c fiber.Ctx) error {
	return h.export(c, "/api/v1/admin/ledger/export", h.adminFlow.ExportLedger)
}

func (h *AdminHandler) export(c fiber.Ctx, endpoint string, run func(context.Context, uint) (*dto.ExportResult, error)) error {
	adminID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := run(h.createRequestContext(c, endpoint), adminID)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "FORBIDDEN", nil)
		}

		log.Println("Export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Export failed", "ADMIN_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.FileName))
	return c.Send(result.Content)
}

// createRequestContext creates a context with timeout and request metadata
func (h *AdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
