package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/logger"
)

// FileListFilter narrows ListByOwner. Zero values mean "no filter".
type FileListFilter struct {
	ProjectID *uuid.UUID
	Category  string
	Search    string
}

type FileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, file *domain.File) (*domain.File, error)
	GetByID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (*domain.File, error)
	GetByOwnerAndChecksum(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, checksum string) (*domain.File, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, filter FileListFilter) ([]*domain.File, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.File, error)
	Update(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) error
	// DetachProject clears project_id on every file in the project.
	DetachProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
	IncrementViews(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) error
	IncrementPurchases(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) error
}

type fileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	return &fileRepo{db: db, log: baseLog.With("repo", "FileRepo")}
}

func (r *fileRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *fileRepo) Create(ctx context.Context, tx *gorm.DB, file *domain.File) (*domain.File, error) {
	if err := r.conn(tx).WithContext(ctx).Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

func (r *fileRepo) GetByID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (*domain.File, error) {
	var out domain.File
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", fileID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fileRepo) GetByOwnerAndChecksum(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, checksum string) (*domain.File, error) {
	var out domain.File
	if err := r.conn(tx).WithContext(ctx).
		Where("owner_id = ? AND checksum = ?", ownerID, checksum).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fileRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, filter FileListFilter) ([]*domain.File, error) {
	q := r.conn(tx).WithContext(ctx).
		Where("owner_id = ?", ownerID)
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ? OR summary ILIKE ?", like, like, like)
	}
	var out []*domain.File
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fileRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*domain.File, error) {
	var out []*domain.File
	if err := r.conn(tx).WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fileRepo) Update(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&domain.File{}).
		Where("id = ?", fileID).
		Updates(fields).Error
}

func (r *fileRepo) Delete(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Where("id = ?", fileID).
		Delete(&domain.File{}).Error
}

func (r *fileRepo) DetachProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.File{}).
		Where("project_id = ?", projectID).
		Update("project_id", nil).Error
}

func (r *fileRepo) IncrementViews(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.File{}).
		Where("id = ?", fileID).
		Update("total_views", gorm.Expr("total_views + 1")).Error
}

func (r *fileRepo) IncrementPurchases(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.File{}).
		Where("id = ?", fileID).
		Update("total_purchases", gorm.Expr("total_purchases + 1")).Error
}
