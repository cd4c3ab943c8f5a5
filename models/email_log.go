package models

import (
	"time"
)

// EmailStatus tracks delivery of an outbound message.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "Pending"
	EmailStatusSent    EmailStatus = "Sent"
	EmailStatusFailed  EmailStatus = "Failed"
)

// EmailLog records every outbound email attempt (approval notices, broadcast
// announcements). A row is created Pending before the send and updated with
// the outcome afterwards.
type EmailLog struct {
	ID     uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID *uint `gorm:"index:idx_email_log_user_id" json:"user_id,omitempty"`

	Recipient string `gorm:"size:120;not null" json:"recipient"`
	Subject   string `gorm:"size:200;not null" json:"subject"`
	Body      string `gorm:"type:text" json:"-"`

	Status       EmailStatus `gorm:"type:varchar(20);not null;default:'Pending';index:idx_email_log_status" json:"status"`
	ErrorMessage *string     `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_email_log_created_at" json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (EmailLog) TableName() string {
	return "email_log"
}

// EmailLogFilter represents filter criteria for email log queries
type EmailLogFilter struct {
	ID            *uint        `json:"id,omitempty"`
	UserID        *uint        `json:"user_id,omitempty"`
	Recipient     *string      `json:"recipient,omitempty"`
	Status        *EmailStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time   `json:"created_after,omitempty"`
	CreatedBefore *time.Time   `json:"created_before,omitempty"`
}
