package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/logger"
)

type TransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, t *domain.Transaction) (*domain.Transaction, error)
	ListByCreator(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, limit int) ([]*domain.Transaction, error)
	// HasPurchase reports whether purchaserID holds a settled purchase
	// of fileID.
	HasPurchase(ctx context.Context, tx *gorm.DB, fileID, purchaserID uuid.UUID) (bool, error)
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return &transactionRepo{db: db, log: baseLog.With("repo", "TransactionRepo")}
}

func (r *transactionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *transactionRepo) Create(ctx context.Context, tx *gorm.DB, t *domain.Transaction) (*domain.Transaction, error) {
	if err := r.conn(tx).WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transactionRepo) ListByCreator(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.Transaction
	if err := r.conn(tx).WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transactionRepo) HasPurchase(ctx context.Context, tx *gorm.DB, fileID, purchaserID uuid.UUID) (bool, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("file_id = ? AND purchaser_id = ?", fileID, purchaserID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
