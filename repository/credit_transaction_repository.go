package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmsu/prior-art-portal/models"
	"gorm.io/gorm"
)

// CreditTransactionRepositoryImpl implements CreditTransactionRepository interface
type CreditTransactionRepositoryImpl struct {
	*BaseRepository[models.CreditTransaction, models.CreditTransactionFilter]
}

// NewCreditTransactionRepository creates a new credit transaction repository
func NewCreditTransactionRepository(db *gorm.DB) CreditTransactionRepository {
	return &CreditTransactionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CreditTransaction, models.CreditTransactionFilter](db),
	}
}

// ListByUser retrieves the ledger entries of a user with pagination,
// newest first.
func (r *CreditTransactionRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.CreditTransaction, error) {
	db := r.getDB(ctx)
	var entries []*models.CreditTransaction
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions by user: %w", err)
	}
	return entries, nil
}

// LatestByUser returns the most recent ledger entry for a user. The entry's
// BalanceAfter must equal the user's stored balance.
func (r *CreditTransactionRepositoryImpl) LatestByUser(ctx context.Context, userID uint) (*models.CreditTransaction, error) {
	db := r.getDB(ctx)
	var entry models.CreditTransaction
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// SumDebitsByKind returns the total credits consumed for a given charge kind,
// as a positive number.
func (r *CreditTransactionRepositoryImpl) SumDebitsByKind(ctx context.Context, kind models.CreditTransactionKind) (int64, error) {
	db := r.getDB(ctx)
	var total int64
	err := db.Model(&models.CreditTransaction{}).
		Where("kind = ? AND amount < 0", kind).
		Select("COALESCE(SUM(-amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum debits by kind: %w", err)
	}
	return total, nil
}

// ByFilter retrieves ledger entries based on filter criteria
func (r *CreditTransactionRepositoryImpl) ByFilter(ctx context.Context, filter models.CreditTransactionFilter, orderBy string, limit, offset int) ([]*models.CreditTransaction, error) {
	db := r.getDB(ctx)
	var entries []*models.CreditTransaction

	query := db.Model(&models.CreditTransaction{})
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

	err := query.Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of ledger entries matching the filter
func (r *CreditTransactionRepositoryImpl) Count(ctx context.Context, filter models.CreditTransactionFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.CreditTransaction{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any ledger entry matching the filter exists
func (r *CreditTransactionRepositoryImpl) Exists(ctx context.Context, filter models.CreditTransactionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *CreditTransactionRepositoryImpl) applyFilter(query *gorm.DB, filter models.CreditTransactionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SubmissionID != nil {
		query = query.Where("submission_id = ?", *filter.SubmissionID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
