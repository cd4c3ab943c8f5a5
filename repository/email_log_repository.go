package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mmsu/prior-art-portal/models"
	"gorm.io/gorm"
)

// EmailLogRepositoryImpl implements EmailLogRepository interface
type EmailLogRepositoryImpl struct {
	*BaseRepository[models.EmailLog, models.EmailLogFilter]
}

// NewEmailLogRepository creates a new email log repository
func NewEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &EmailLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EmailLog, models.EmailLogFilter](db),
	}
}

// MarkSent records a successful delivery
func (r *EmailLogRepositoryImpl) MarkSent(ctx context.Context, emailLogID uint, sentAt time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.EmailLog{}).
		Where("id = ?", emailLogID).
		Updates(map[string]any{
			"status":  models.EmailStatusSent,
			"sent_at": sentAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}

	return nil
}

// MarkFailed records a delivery failure with the provider error
func (r *EmailLogRepositoryImpl) MarkFailed(ctx context.Context, emailLogID uint, errorMessage string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.EmailLog{}).
		Where("id = ?", emailLogID).
		Updates(map[string]any{
			"status":        models.EmailStatusFailed,
			"error_message": errorMessage,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark email failed: %w", err)
	}

	return nil
}

// ListByUser retrieves email records for a specific user with pagination
func (r *EmailLogRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.EmailLog, error) {
	db := r.getDB(ctx)
	var records []*models.EmailLog
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list email logs by user: %w", err)
	}
	return records, nil
}

// ByFilter retrieves email records based on filter criteria
func (r *EmailLogRepositoryImpl) ByFilter(ctx context.Context, filter models.EmailLogFilter, orderBy string, limit, offset int) ([]*models.EmailLog, error) {
	db := r.getDB(ctx)
	var records []*models.EmailLog

	query := db.Model(&models.EmailLog{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of email records matching the filter
func (r *EmailLogRepositoryImpl) Count(ctx context.Context, filter models.EmailLogFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.EmailLog{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any email record matching the filter exists
func (r *EmailLogRepositoryImpl) Exists(ctx context.Context, filter models.EmailLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *EmailLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.EmailLogFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Recipient != nil {
		query = query.Where("recipient = ?", *filter.Recipient)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
