package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/logger"
)

// ProjectWithCount carries the file count alongside the project for
// list views.
type ProjectWithCount struct {
	domain.Project
	FileCount int64 `json:"file_count"`
}

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, project *domain.Project) (*domain.Project, error)
	GetByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*domain.Project, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*ProjectWithCount, error)
	Update(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, fields map[string]any) error
	UpdateSummary(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, summary string) error
	Delete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *projectRepo) Create(ctx context.Context, tx *gorm.DB, project *domain.Project) (*domain.Project, error) {
	if err := r.conn(tx).WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*domain.Project, error) {
	var out domain.Project
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", projectID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *projectRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*ProjectWithCount, error) {
	var out []*ProjectWithCount
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.Project{}).
		Select(`"project".*, (SELECT COUNT(*) FROM "file" WHERE "file"."project_id" = "project"."id") AS file_count`).
		Where(`"project"."owner_id" = ?`, ownerID).
		Order(`"project"."created_at" DESC`).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) Update(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", projectID).
		Updates(fields).Error
}

func (r *projectRepo) UpdateSummary(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, summary string) error {
	return r.Update(ctx, tx, projectID, map[string]any{"summary": summary})
}

func (r *projectRepo) Delete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Where("id = ?", projectID).
		Delete(&domain.Project{}).Error
}
