// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmsu/prior-art-portal/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for portal users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.User, error)
	ByIDForUpdate(ctx context.Context, id uint) (*models.User, error)
	ListByStatus(ctx context.Context, status models.UserStatus, limit, offset int) ([]*models.User, error)
	ListActiveEmails(ctx context.Context) ([]string, error)
	UpdateCredits(ctx context.Context, userID uint, credits int) error
	UpdateStatus(ctx context.Context, userID uint, status models.UserStatus) error
	UpdateDisclaimer(ctx context.Context, userID uint, acceptedAt time.Time) error
	UpdateLastSeen(ctx context.Context, userID uint, seenAt time.Time) error
}

// SubmissionRepository defines operations for technology disclosures
type SubmissionRepository interface {
	Repository[models.Submission, models.SubmissionFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Submission, error)
	BySerialNumber(ctx context.Context, serial string) (*models.Submission, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Submission, error)
	UpdateStatus(ctx context.Context, submissionID uint, status models.SubmissionStatus) error
	CompleteAnalysis(ctx context.Context, submissionID uint, results []byte, analyzedAt time.Time) error
	CountByStatus(ctx context.Context, status models.SubmissionStatus) (int64, error)
}

// CreditTransactionRepository defines operations for the credit ledger
type CreditTransactionRepository interface {
	Repository[models.CreditTransaction, models.CreditTransactionFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.CreditTransaction, error)
	LatestByUser(ctx context.Context, userID uint) (*models.CreditTransaction, error)
	SumDebitsByKind(ctx context.Context, kind models.CreditTransactionKind) (int64, error)
}

// DownloadHistoryRepository defines operations for report download records
type DownloadHistoryRepository interface {
	Repository[models.DownloadHistory, models.DownloadHistoryFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.DownloadHistory, error)
	ListBySubmission(ctx context.Context, submissionID uint, limit, offset int) ([]*models.DownloadHistory, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// EmailLogRepository defines operations for outbound email records
type EmailLogRepository interface {
	Repository[models.EmailLog, models.EmailLogFilter]
	MarkSent(ctx context.Context, emailLogID uint, sentAt time.Time) error
	MarkFailed(ctx context.Context, emailLogID uint, errorMessage string) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.EmailLog, error)
}
