package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/utils"
	"gorm.io/gorm"
)

// ErrSubmissionNotProcessing is returned by CompleteAnalysis when the
// submission is not in Processing status. Completed submissions keep their
// stored results; the payload is never overwritten.
var ErrSubmissionNotProcessing = errors.New("submission is not in Processing status")

// SubmissionRepositoryImpl implements SubmissionRepository interface
type SubmissionRepositoryImpl struct {
	*BaseRepository[models.Submission, models.SubmissionFilter]
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &SubmissionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Submission, models.SubmissionFilter](db),
	}
}

// ByUUID finds a submission by UUID
func (r *SubmissionRepositoryImpl) ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Submission, error) {
	db := r.getDB(ctx)
	var submission models.Submission
	err := db.Where("uuid = ?", uuid).Last(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

// BySerialNumber finds a submission by its serial number
func (r *SubmissionRepositoryImpl) BySerialNumber(ctx context.Context, serial string) (*models.Submission, error) {
	db := r.getDB(ctx)
	var submission models.Submission
	err := db.Where("serial_number = ?", serial).Last(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

// ListByUser retrieves submissions for a specific user with pagination,
// newest first.
func (r *SubmissionRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Submission, error) {
	db := r.getDB(ctx)
	var submissions []*models.Submission
	err := db.Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions by user: %w", err)
	}
	return submissions, nil
}

// UpdateStatus advances the analysis lifecycle of a submission
func (r *SubmissionRepositoryImpl) UpdateStatus(ctx context.Context, submissionID uint, status models.SubmissionStatus) error {
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

	err = db.Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}

	return nil
}

// CompleteAnalysis stores the analysis payload and marks the submission
// Completed in a single update. The payload is written exactly once: the
// update only matches a Processing submission, so a repeated call cannot
// overwrite stored results.
func (r *SubmissionRepositoryImpl) CompleteAnalysis(ctx context.Context, submissionID uint, results []byte, analyzedAt time.Time) error {
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

	res := db.Model(&models.Submission{}).
		Where("id = ? AND status = ?", submissionID, models.SubmissionStatusProcessing).
		Updates(map[string]any{
			"status":           models.SubmissionStatusCompleted,
			"analysis_results": results,
			"analyzed_at":      analyzedAt,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		err = fmt.Errorf("failed to complete submission analysis: %w", res.Error)
		return err
	}
	if res.RowsAffected == 0 {
		err = ErrSubmissionNotProcessing
		return err
	}

	return nil
}

// CountByStatus returns the number of submissions in a given status
func (r *SubmissionRepositoryImpl) CountByStatus(ctx context.Context, status models.SubmissionStatus) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Submission{}).
		Where("status = ?", status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions by status: %w", err)
	}
	return count, nil
}

// ByFilter retrieves submissions based on filter criteria
func (r *SubmissionRepositoryImpl) ByFilter(ctx context.Context, filter models.SubmissionFilter, orderBy string, limit, offset int) ([]*models.Submission, error) {
	db := r.getDB(ctx)
	var submissions []*models.Submission

	query := db.Model(&models.Submission{})
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

	err := query.Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

// Count returns the number of submissions matching the filter
func (r *SubmissionRepositoryImpl) Count(ctx context.Context, filter models.SubmissionFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Submission{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any submission matching the filter exists
func (r *SubmissionRepositoryImpl) Exists(ctx context.Context, filter models.SubmissionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *SubmissionRepositoryImpl) applyFilter(query *gorm.DB, filter models.SubmissionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SerialNumber != nil {
		query = query.Where("serial_number = ?", *filter.SerialNumber)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SubmittedAfter != nil {
		query = query.Where("submitted_at > ?", *filter.SubmittedAfter)
	}
	if filter.SubmittedBefore != nil {
		query = query.Where("submitted_at < ?", *filter.SubmittedBefore)
	}
	return query
}
