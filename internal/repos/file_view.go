package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/logger"
)

type FileViewCount struct {
	FileID uuid.UUID `json:"file_id"`
	Views  int64     `json:"views"`
}

type FileViewRepo interface {
	Create(ctx context.Context, tx *gorm.DB, view *domain.FileView) (*domain.FileView, error)
	CountByFile(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (int64, error)
	// CountByOwnerFiles aggregates the view log per file across all
	// files owned by ownerID.
	CountByOwnerFiles(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]FileViewCount, error)
}

type fileViewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileViewRepo(db *gorm.DB, baseLog *logger.Logger) FileViewRepo {
	return &fileViewRepo{db: db, log: baseLog.With("repo", "FileViewRepo")}
}

func (r *fileViewRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *fileViewRepo) Create(ctx context.Context, tx *gorm.DB, view *domain.FileView) (*domain.FileView, error) {
	if err := r.conn(tx).WithContext(ctx).Create(view).Error; err != nil {
		return nil, err
	}
	return view, nil
}

func (r *fileViewRepo) CountByFile(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.FileView{}).
		Where("file_id = ?", fileID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *fileViewRepo) CountByOwnerFiles(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]FileViewCount, error) {
	var out []FileViewCount
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.FileView{}).
		Select(`"file_view"."file_id", COUNT(*) AS views`).
		Joins(`JOIN "file" ON "file"."id" = "file_view"."file_id"`).
		Where(`"file"."owner_id" = ?`, ownerID).
		Group(`"file_view"."file_id"`).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
