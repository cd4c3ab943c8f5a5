package models

import (
	"encoding/json"
	"time"
)

// AuditLog is an append-only record of every state-changing or privileged
// action. UserID is nil for unauthenticated actions (e.g. registration).
// Writes are best-effort: a failed audit write never rolls back the business
// operation that triggered it.
type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	User         *User           `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Action       string          `gorm:"size:100;not null;index:idx_audit_action" json:"action"`
	ResourceType string          `gorm:"size:50" json:"resource_type"`
	ResourceID   *uint           `gorm:"index:idx_audit_resource_id" json:"resource_id,omitempty"`
	Details      json.RawMessage `gorm:"type:jsonb" json:"details,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionUserRegistered     = "user_registered"
	AuditActionUserLogin          = "user_login"
	AuditActionLoginFailed        = "login_failed"
	AuditActionUserLogout         = "user_logout"
	AuditActionDisclaimerAccepted = "disclaimer_accepted"
	AuditActionSubmissionCreated  = "submission_created"
	AuditActionSubmissionFailed   = "submission_failed"
	AuditActionAnalysisCompleted  = "analysis_completed"
	AuditActionAnalysisFallback   = "analysis_fallback_used"
	AuditActionPDFDownloaded      = "pdf_downloaded"
	AuditActionDownloadFailed     = "pdf_download_failed"
	AuditActionUserApproved       = "user_approved"
	AuditActionUserDeactivated    = "user_deactivated"
	AuditActionCreditsAdjusted    = "credits_adjusted"
	AuditActionBroadcastEmail     = "broadcast_email_sent"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	UserID        *uint
	Action        *string
	ResourceType  *string
	ResourceID    *uint
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

// GetDetails decodes the free-form detail payload.
func (a *AuditLog) GetDetails() (map[string]any, error) {
	if len(a.Details) == 0 {
		return map[string]any{}, nil
	}
	var details map[string]any
	if err := json.Unmarshal(a.Details, &details); err != nil {
		return nil, err
	}
	return details, nil
}
