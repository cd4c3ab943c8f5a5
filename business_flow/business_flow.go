// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	"github.com/mmsu/prior-art-portal/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// createAuditLog records an action outcome. Callers ignore the returned error
// on purpose: audit writes are best-effort and never fail the operation that
// produced them.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, user *models.User, action, resourceType string, resourceID *uint, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil {
		userID = &user.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	details, _ := json.Marshal(map[string]string{"description": description})

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return auditRepo.Save(ctx, audit)
}

// getActiveUser loads a user by ID and verifies the account may act.
func getActiveUser(ctx context.Context, userRepo repository.UserRepository, userID uint) (*models.User, error) {
	user, err := userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, ErrAccountNotActive
	}
	return user, nil
}

// normalizePagination applies defaults and bounds to page/page size values.
func normalizePagination(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > utils.MaxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}

// ToUserDTO converts a user model to UserDTO for API responses
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:                 user.ID,
		UUID:               user.UUID.String(),
		Email:              user.Email,
		Name:               user.Name,
		Institution:        user.Institution,
		Phone:              user.Phone,
		Role:               string(user.Role),
		Credits:            user.Credits,
		Status:             string(user.Status),
		DisclaimerAccepted: user.DisclaimerAccepted,
		CreatedAt:          user.CreatedAt.Format(time.RFC3339),
	}
}

// ToSubmissionDTO converts a submission model to SubmissionDTO for API responses
func ToSubmissionDTO(submission models.Submission) dto.SubmissionDTO {
	d := dto.SubmissionDTO{
		ID:               submission.ID,
		UUID:             submission.UUID.String(),
		SerialNumber:     submission.SerialNumber,
		Title:            submission.Title,
		Description:      submission.Description,
		Claims:           submission.Claims,
		Inventors:        submission.Inventors,
		Institution:      submission.Institution,
		UploadedFileName: submission.UploadedFileName,
		Status:           string(submission.Status),
		AnalysisResults:  submission.AnalysisResults,
		SubmittedAt:      submission.SubmittedAt.Format(time.RFC3339),
	}
	if submission.AnalyzedAt != nil {
		d.AnalyzedAt = utils.ToPtr(submission.AnalyzedAt.Format(time.RFC3339))
	}
	return d
}

// ToAuditLogDTO converts an audit trail entry to its API representation
func ToAuditLogDTO(entry models.AuditLog) dto.AuditLogDTO {
	return dto.AuditLogDTO{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		Success:      entry.Success == nil || *entry.Success,
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    entry.CreatedAt.Format(time.RFC3339),
	}
}

// ToCreditTransactionDTO converts a ledger entry to its API representation
func ToCreditTransactionDTO(entry models.CreditTransaction) dto.CreditTransactionDTO {
	return dto.CreditTransactionDTO{
		ID:           entry.ID,
		UUID:         entry.UUID.String(),
		SubmissionID: entry.SubmissionID,
		Kind:         string(entry.Kind),
		Amount:       entry.Amount,
		BalanceAfter: entry.BalanceAfter,
		Description:  entry.Description,
		CreatedAt:    entry.CreatedAt.Format(time.RFC3339),
	}
}
