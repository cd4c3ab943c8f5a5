// Package models contains domain entities and business models for the disclosure portal
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole determines credit treatment: Admin and VIP accounts are
// privileged and never consume credits.
type UserRole string

const (
	RoleAdmin   UserRole = "Admin"
	RoleVIP     UserRole = "VIP"
	RoleRegular UserRole = "Regular"
)

// UserStatus represents the lifecycle of an account. New registrations start
// Pending and require admin approval before they can log in.
type UserStatus string

const (
	UserStatusPending  UserStatus = "Pending"
	UserStatusActive   UserStatus = "Active"
	UserStatusInactive UserStatus = "Inactive"
)

type User struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	Email        string  `gorm:"size:120;not null;uniqueIndex:idx_users_email" json:"email"`
	Name         string  `gorm:"size:100;not null" json:"name"`
	PasswordHash string  `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	Institution  *string `gorm:"size:200" json:"institution,omitempty"`
	Phone        *string `gorm:"size:20" json:"phone,omitempty"`

	Role    UserRole   `gorm:"type:varchar(20);not null;default:'Regular';index:idx_users_role" json:"role"`
	Credits int        `gorm:"not null;default:0" json:"credits"`
	Status  UserStatus `gorm:"type:varchar(20);not null;default:'Pending';index:idx_users_status" json:"status"`

	DisclaimerAccepted   bool       `gorm:"not null;default:false" json:"disclaimer_accepted"`
	DisclaimerAcceptedAt *time.Time `json:"disclaimer_accepted_at,omitempty"`

	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_users_created_at" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	Submissions   []Submission        `gorm:"foreignKey:UserID" json:"-"`
	CreditHistory []CreditTransaction `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs     []AuditLog          `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsPrivileged reports whether the user is exempt from credit consumption.
func (u *User) IsPrivileged() bool {
	return u.Role == RoleAdmin || u.Role == RoleVIP
}

// HasCredits checks whether the user can afford a charge of the given amount.
// Privileged users always satisfy the check.
func (u *User) HasCredits(amount int) bool {
	if u.IsPrivileged() {
		return true
	}
	return u.Credits >= amount
}

// IsActive reports whether the account may authenticate and act.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID                 *uint       `json:"id,omitempty"`
	UUID               *uuid.UUID  `json:"uuid,omitempty"`
	Email              *string     `json:"email,omitempty"`
	Role               *UserRole   `json:"role,omitempty"`
	Status             *UserStatus `json:"status,omitempty"`
	DisclaimerAccepted *bool       `json:"disclaimer_accepted,omitempty"`
	CreatedAfter       *time.Time  `json:"created_after,omitempty"`
	CreatedBefore      *time.Time  `json:"created_before,omitempty"`
}
