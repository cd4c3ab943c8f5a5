// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "encoding/json"

// ListUsersRequest represents filter and pagination parameters for the admin user list
type ListUsersRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=Pending Active Inactive" example:"Pending"`
	Page     int    `query:"page" validate:"omitempty,min=1" example:"1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100" example:"20"`
}

// ListUsersResponse represents a page of portal users
type ListUsersResponse struct {
	Items      []UserDTO `json:"items"`
	Page       int       `json:"page" example:"1"`
	PageSize   int       `json:"page_size" example:"20"`
	TotalItems int64     `json:"total_items" example:"57"`
}

// ApproveUserResponse represents the response after approving a pending account
type ApproveUserResponse struct {
	Message string  `json:"message" example:"User approved"`
	User    UserDTO `json:"user"`
}

// DeactivateUserResponse represents the response after deactivating an account
type DeactivateUserResponse struct {
	Message string  `json:"message" example:"User deactivated"`
	User    UserDTO `json:"user"`
}

// AdjustCreditsRequest represents a manual admin balance adjustment
type AdjustCreditsRequest struct {
	Amount int    `json:"amount" validate:"required" example:"25"`
	Reason string `json:"reason" validate:"required,min=3,max=200" example:"Grant for department pilot program"`
}

// AdjustCreditsResponse represents the response after a balance adjustment
type AdjustCreditsResponse struct {
	Message    string `json:"message" example:"Credits adjusted"`
	UserID     uint   `json:"user_id" example:"123"`
	Amount     int    `json:"amount" example:"25"`
	NewBalance int    `json:"new_balance" example:"75"`
}

// BroadcastEmailRequest represents an announcement sent to all active users
type BroadcastEmailRequest struct {
	Subject string `json:"subject" validate:"required,min=3,max=200" example:"Scheduled maintenance"`
	Body    string `json:"body" validate:"required,min=3" example:"The portal will be unavailable on Saturday..."`
}

// BroadcastEmailResponse represents the response after queuing a broadcast
type BroadcastEmailResponse struct {
	Message        string `json:"message" example:"Broadcast queued"`
	RecipientCount int    `json:"recipient_count" example:"57"`
}

// DashboardStatsResponse represents aggregate portal statistics
type DashboardStatsResponse struct {
	TotalUsers           int64 `json:"total_users" example:"57"`
	ActiveUsers          int64 `json:"active_users" example:"44"`
	PendingUsers         int64 `json:"pending_users" example:"9"`
	NewUsersThisWeek     int64 `json:"new_users_this_week" example:"4"`
	TotalSubmissions     int64 `json:"total_submissions" example:"120"`
	CompletedSubmissions int64 `json:"completed_submissions" example:"118"`
	SubmissionsToday     int64 `json:"submissions_today" example:"3"`
	SubmissionsThisWeek  int64 `json:"submissions_this_week" example:"12"`
	TotalDownloads       int64 `json:"total_downloads" example:"80"`
	AnalysisCreditsSpent int64 `json:"analysis_credits_spent" example:"118"`
	DownloadCreditsSpent int64 `json:"download_credits_spent" example:"80"`
}

// ExportResult carries a rendered XLSX workbook back to the handler
type ExportResult struct {
	FileName string `json:"file_name" example:"users-20260828.xlsx"`
	Content  []byte `json:"-"`
}

// ListAuditLogsRequest represents filter and pagination parameters for the
// admin audit trail. Action, UserID and FailedOnly narrow the listing; the
// first one set wins, in that order.
type ListAuditLogsRequest struct {
	Action     string `query:"action" validate:"omitempty,max=100" example:"credits_adjusted"`
	UserID     uint   `query:"user_id" example:"123"`
	FailedOnly bool   `query:"failed_only" example:"false"`
	Page       int    `query:"page" validate:"omitempty,min=1" example:"1"`
	PageSize   int    `query:"page_size" validate:"omitempty,min=1,max=100" example:"20"`
}

// AuditLogDTO represents one audit trail entry in API responses
type AuditLogDTO struct {
	ID           uint            `json:"id" example:"42"`
	UserID       *uint           `json:"user_id,omitempty" example:"123"`
	Action       string          `json:"action" example:"credits_adjusted"`
	ResourceType string          `json:"resource_type" example:"user"`
	ResourceID   *uint           `json:"resource_id,omitempty" example:"123"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    *string         `json:"ip_address,omitempty" example:"203.0.113.10"`
	RequestID    *string         `json:"request_id,omitempty"`
	Success      bool            `json:"success" example:"true"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    string          `json:"created_at" example:"2026-08-28T10:00:00Z"`
}

// ListAuditLogsResponse represents a page of the audit trail
type ListAuditLogsResponse struct {
	Items      []AuditLogDTO `json:"items"`
	Page       int           `json:"page" example:"1"`
	PageSize   int           `json:"page_size" example:"20"`
	TotalItems int64         `json:"total_items" example:"310"`
}
