package models

import (
	"time"
)

// DownloadHistory records every successful PDF report download. Rows are
// written after the credit debit commits, so the table doubles as a billing
// trail for download charges.
type DownloadHistory struct {
	ID           uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint `gorm:"not null;index:idx_download_history_user_id" json:"user_id"`
	SubmissionID uint `gorm:"not null;index:idx_download_history_submission_id" json:"submission_id"`

	IPAddress *string `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent *string `gorm:"type:text" json:"user_agent,omitempty"`

	DownloadedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_download_history_downloaded_at" json:"downloaded_at"`

	// Relationships
	User       User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Submission Submission `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DownloadHistory) TableName() string {
	return "download_history"
}

// DownloadHistoryFilter represents filter criteria for download history queries
type DownloadHistoryFilter struct {
	ID               *uint      `json:"id,omitempty"`
	UserID           *uint      `json:"user_id,omitempty"`
	SubmissionID     *uint      `json:"submission_id,omitempty"`
	DownloadedAfter  *time.Time `json:"downloaded_after,omitempty"`
	DownloadedBefore *time.Time `json:"downloaded_before,omitempty"`
}
