package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
)

type ProjectUpdate struct {
	Name        *string
	Description *string
	Category    *string
}

// ProjectDetail is a project with its files, newest first.
type ProjectDetail struct {
	Project *domain.Project `json:"project"`
	Files   []*domain.File  `json:"files"`
}

type ProjectService interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]*repos.ProjectWithCount, error)
	Create(ctx context.Context, ownerID uuid.UUID, name, description, category string) (*domain.Project, error)
	Get(ctx context.Context, ownerID, projectID uuid.UUID) (*ProjectDetail, error)
	Update(ctx context.Context, ownerID, projectID uuid.UUID, update ProjectUpdate) (*domain.Project, error)
	// Delete removes the project and detaches its files; the files
	// themselves survive.
	Delete(ctx context.Context, ownerID, projectID uuid.UUID) error
}

type projectService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	fileRepo    repos.FileRepo
}

func NewProjectService(db *gorm.DB, log *logger.Logger, projectRepo repos.ProjectRepo, fileRepo repos.FileRepo) ProjectService {
	return &projectService{
		db:          db,
		log:         log.With("service", "ProjectService"),
		projectRepo: projectRepo,
		fileRepo:    fileRepo,
	}
}

func (s *projectService) List(ctx context.Context, ownerID uuid.UUID) ([]*repos.ProjectWithCount, error) {
	return s.projectRepo.ListByOwner(ctx, nil, ownerID)
}

func (s *projectService) Create(ctx context.Context, ownerID uuid.UUID, name, description, category string) (*domain.Project, error) {
	return s.projectRepo.Create(ctx, nil, &domain.Project{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Category:    category,
	})
}

func (s *projectService) Get(ctx context.Context, ownerID, projectID uuid.UUID) (*ProjectDetail, error) {
	project, err := s.requireOwned(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	files, err := s.fileRepo.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: project, Files: files}, nil
}

func (s *projectService) Update(ctx context.Context, ownerID, projectID uuid.UUID, update ProjectUpdate) (*domain.Project, error) {
	if _, err := s.requireOwned(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Category != nil {
		fields["category"] = *update.Category
	}
	if err := s.projectRepo.Update(ctx, nil, projectID, fields); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, nil, projectID)
}

func (s *projectService) Delete(ctx context.Context, ownerID, projectID uuid.UUID) error {
	if _, err := s.requireOwned(ctx, ownerID, projectID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.fileRepo.DetachProject(ctx, tx, projectID); err != nil {
			return err
		}
		return s.projectRepo.Delete(ctx, tx, projectID)
	})
}

func (s *projectService) requireOwned(ctx context.Context, ownerID, projectID uuid.UUID) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, nil, projectID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, apierr.NotFound("project_not_found", err)
		}
		return nil, err
	}
	if project.OwnerID != ownerID {
		return nil, apierr.Forbidden(fmt.Errorf("project %s is not owned by %s", projectID, ownerID))
	}
	return project, nil
}
