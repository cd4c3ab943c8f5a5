package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mmsu/prior-art-portal/models"
	"gorm.io/gorm"
)

// DownloadHistoryRepositoryImpl implements DownloadHistoryRepository interface
type DownloadHistoryRepositoryImpl struct {
	*BaseRepository[models.DownloadHistory, models.DownloadHistoryFilter]
}

// NewDownloadHistoryRepository creates a new download history repository
func NewDownloadHistoryRepository(db *gorm.DB) DownloadHistoryRepository {
	return &DownloadHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DownloadHistory, models.DownloadHistoryFilter](db),
	}
}

// ListByUser retrieves download records for a specific user with pagination
func (r *DownloadHistoryRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.DownloadHistory, error) {
	db := r.getDB(ctx)
	var records []*models.DownloadHistory
	err := db.Where("user_id = ?", userID).
		Order("downloaded_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads by user: %w", err)
	}
	return records, nil
}

// ListBySubmission retrieves download records for a specific submission
func (r *DownloadHistoryRepositoryImpl) ListBySubmission(ctx context.Context, submissionID uint, limit, offset int) ([]*models.DownloadHistory, error) {
	db := r.getDB(ctx)
	var records []*models.DownloadHistory
	err := db.Where("submission_id = ?", submissionID).
		Order("downloaded_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads by submission: %w", err)
	}
	return records, nil
}

// CountSince returns the number of downloads after the given time
func (r *DownloadHistoryRepositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.DownloadHistory{}).
		Where("downloaded_at > ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return count, nil
}

// ByFilter retrieves download records based on filter criteria
func (r *DownloadHistoryRepositoryImpl) ByFilter(ctx context.Context, filter models.DownloadHistoryFilter, orderBy string, limit, offset int) ([]*models.DownloadHistory, error) {
	db := r.getDB(ctx)
	var records []*models.DownloadHistory

	query := db.Model(&models.DownloadHistory{})
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

// Count returns the number of download records matching the filter
func (r *DownloadHistoryRepositoryImpl) Count(ctx context.Context, filter models.DownloadHistoryFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.DownloadHistory{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any download record matching the filter exists
func (r *DownloadHistoryRepositoryImpl) Exists(ctx context.Context, filter models.DownloadHistoryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *DownloadHistoryRepositoryImpl) applyFilter(query *gorm.DB, filter models.DownloadHistoryFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SubmissionID != nil {
		query = query.Where("submission_id = ?", *filter.SubmissionID)
	}
	if filter.DownloadedAfter != nil {
		query = query.Where("downloaded_at > ?", *filter.DownloadedAfter)
	}
	if filter.DownloadedBefore != nil {
		query = query.Where("downloaded_at < ?", *filter.DownloadedBefore)
	}
	return query
}
