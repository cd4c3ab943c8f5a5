package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditTransactionKind classifies ledger entries.
type CreditTransactionKind string

const (
	CreditKindAnalysis   CreditTransactionKind = "analysis"   // Debit for running a prior-art analysis
	CreditKindDownload   CreditTransactionKind = "download"   // Debit for downloading a PDF report
	CreditKindGrant      CreditTransactionKind = "grant"      // Initial or promotional credit grant
	CreditKindAdjustment CreditTransactionKind = "adjustment" // Manual admin adjustment
)

// CreditTransaction is an immutable ledger entry. Amount is negative for
// debits and positive for credits; BalanceAfter snapshots the user's balance
// immediately after the entry was applied and must always match it.
type CreditTransaction struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	UserID       uint  `gorm:"not null;index:idx_credit_transactions_user_id" json:"user_id"`
	SubmissionID *uint `gorm:"index:idx_credit_transactions_submission_id" json:"submission_id,omitempty"`

	Kind         CreditTransactionKind `gorm:"type:varchar(20);not null;index:idx_credit_transactions_kind" json:"kind"`
	Amount       int                   `gorm:"not null" json:"amount"`
	BalanceAfter int                   `gorm:"not null" json:"balance_after"`
	Description  string                `gorm:"size:200" json:"description"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_credit_transactions_created_at" json:"created_at"`

	// Relationships
	User       User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Submission *Submission `gorm:"foreignKey:SubmissionID" json:"-"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// BeforeCreate ensures UUID is set
func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	return nil
}

// IsDebit reports whether the entry decreased (or attempted to decrease) the
// balance.
func (t *CreditTransaction) IsDebit() bool {
	return t.Amount < 0
}

// CreditTransactionFilter represents filter criteria for ledger queries
type CreditTransactionFilter struct {
	ID            *uint                  `json:"id,omitempty"`
	UserID        *uint                  `json:"user_id,omitempty"`
	SubmissionID  *uint                  `json:"submission_id,omitempty"`
	Kind          *CreditTransactionKind `json:"kind,omitempty"`
	CreatedAfter  *time.Time             `json:"created_after,omitempty"`
	CreatedBefore *time.Time             `json:"created_before,omitempty"`
}
