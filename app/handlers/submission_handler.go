// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/middleware"
	"github.com/mmsu/prior-art-portal/app/services"
	businessflow "github.com/mmsu/prior-art-portal/business_flow"
)

// SubmissionHandlerInterface defines the contract for disclosure handlers
type SubmissionHandlerInterface interface {
	CreateSubmission(c fiber.Ctx) error
	GetSubmission(c fiber.Ctx) error
	ListSubmissions(c fiber.Ctx) error
	DownloadReport(c fiber.Ctx) error
	CreditHistory(c fiber.Ctx) error
}

// SubmissionHandler handles technology disclosure HTTP requests
type SubmissionHandler struct {
	submissionFlow businessflow.SubmissionFlow
	extractor      services.TextExtractor
	validator      *validator.Validate
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissionFlow businessflow.SubmissionFlow, extractor services.TextExtractor) *SubmissionHandler {
	return &SubmissionHandler{
		submissionFlow: submissionFlow,
		extractor:      extractor,
		validator:      validator.New(),
	}
}

func (h *SubmissionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SubmissionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateSubmission accepts a multipart disclosure form, runs the prior-art
// analysis and charges one credit. The optional "file" part must be .txt or
// .pdf and its extracted text feeds the analysis.
func (h *SubmissionHandler) CreateSubmission(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req := dto.CreateSubmissionRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}
	if v := c.FormValue("claims"); v != "" {
		req.Claims = &v
	}
	if v := c.FormValue("inventors"); v != "" {
		req.Inventors = &v
	}
	if v := c.FormValue("institution"); v != "" {
		req.Institution = &v
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		if fileHeader.Size > services.MaxUploadSize {
			return h.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "Uploaded file is too large", "FILE_TOO_LARGE", nil)
		}

		file, err := fileHeader.Open()
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", "FILE_READ_FAILED", nil)
		}
		data, err := io.ReadAll(io.LimitReader(file, services.MaxUploadSize+1))
		_ = file.Close()
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", "FILE_READ_FAILED", nil)
		}

		text, err := h.extractor.ExtractText(fileHeader.Filename, data)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported or unreadable file", "UNSUPPORTED_FILE_TYPE", err.Error())
		}

		req.UploadedFileName = &fileHeader.Filename
		req.FileText = &text
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Analysis can take a while; allow more than the default timeout.
	result, err := h.submissionFlow.CreateSubmission(createRequestContextWithTimeout(c, "/api/v1/submissions", 120*time.Second), userID, &req, metadata)
	if err != nil {
		if businessflow.IsInsufficientCredits(err) {
			return h.ErrorResponse(c, fiber.StatusPaymentRequired, "Insufficient credits", dto.ErrorInsufficientCredits, nil)
		}
		if businessflow.IsDisclaimerNotAccepted(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Legal disclaimer must be accepted first", dto.ErrorDisclaimerNotAccepted, nil)
		}
		if businessflow.IsAccountNotActive(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Account is not active", dto.ErrorAccountNotActive, nil)
		}

		log.Println("Submission creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Submission creation failed", "SUBMISSION_FAILED", nil)
	}

	middleware.ObserveSubmissionCreated()
	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// GetSubmission returns a single disclosure owned by the caller
func (h *SubmissionHandler) GetSubmission(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid submission ID", "INVALID_SUBMISSION_ID", nil)
	}

	result, err := h.submissionFlow.GetSubmission(h.createRequestContext(c, "/api/v1/submissions/:id"), userID, submissionID)
	if err != nil {
		if businessflow.IsSubmissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Submission not found", dto.ErrorSubmissionNotFound, nil)
		}
		if businessflow.IsSubmissionAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", dto.ErrorSubmissionAccess, nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load submission", "SUBMISSION_LOAD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Submission retrieved", result)
}

// ListSubmissions returns a page of the caller's disclosures
func (h *SubmissionHandler) ListSubmissions(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	page, pageSize := parsePagination(c)

	result, err := h.submissionFlow.ListSubmissions(h.createRequestContext(c, "/api/v1/submissions"), userID, page, pageSize)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "INVALID_PAGINATION", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list submissions", "SUBMISSION_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Submissions retrieved", result)
}

// DownloadReport streams the analysis report PDF and charges one credit for
// standard accounts
func (h *SubmissionHandler) DownloadReport(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid submission ID", "INVALID_SUBMISSION_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.submissionFlow.DownloadReport(h.createRequestContext(c, "/api/v1/submissions/:id/report"), userID, submissionID, metadata)
	if err != nil {
		if businessflow.IsSubmissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Submission not found", dto.ErrorSubmissionNotFound, nil)
		}
		if businessflow.IsSubmissionAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", dto.ErrorSubmissionAccess, nil)
		}
		if businessflow.IsInvalidSubmissionState(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Analysis is not completed yet", dto.ErrorInvalidState, nil)
		}
		if businessflow.IsInsufficientCredits(err) {
			return h.ErrorResponse(c, fiber.StatusPaymentRequired, "Insufficient credits", dto.ErrorInsufficientCredits, nil)
		}

		log.Println("Report download failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Report download failed", "DOWNLOAD_FAILED", nil)
	}

	middleware.ObserveReportDownloaded()

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.FileName))
	return c.Send(result.Content)
}

// CreditHistory returns a page of the caller's credit ledger
func (h *SubmissionHandler) CreditHistory(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	page, pageSize := parsePagination(c)

	result, err := h.submissionFlow.CreditHistory(h.createRequestContext(c, "/api/v1/submissions/credits"), userID, page, pageSize)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load credit history", "CREDIT_HISTORY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Credit history retrieved", result)
}

// createRequestContext creates a context with timeout and request metadata
func (h *SubmissionHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func parseIDParam(c fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return uint(id), nil
}

func parsePagination(c fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "0"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "0"))
	return page, pageSize
}
