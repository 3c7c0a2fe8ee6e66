package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/clients/openai"
	"github.com/communityvault/backend/internal/clients/pinecone"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
)

// FileUpdate carries the mutable file fields; nil means leave as-is.
type FileUpdate struct {
	Title       *string
	Description *string
	Category    *string
	IsPremium   *bool
	PriceCents  *int64
}

// FileAccess pairs a file with the viewer's access decision. When
// CanAccess is false the HTTP layer serves the redacted preview shape.
type FileAccess struct {
	File      *domain.File
	IsOwner   bool
	CanAccess bool
}

// FileService owns the file lifecycle after ingestion: listing,
// view-logged reads with premium gating, metadata updates with
// embedding refresh, and deletion with vector and object cleanup.
type FileService interface {
	List(ctx context.Context, ownerID uuid.UUID, filter repos.FileListFilter) ([]*domain.File, error)
	// GetForViewer logs the view and increments the cached counter in
	// one transaction, then reports whether the viewer may access the
	// full content.
	GetForViewer(ctx context.Context, viewerID, fileID uuid.UUID) (*FileAccess, error)
	Update(ctx context.Context, ownerID, fileID uuid.UUID, update FileUpdate) (*domain.File, error)
	Delete(ctx context.Context, ownerID, fileID uuid.UUID) error
}

type fileService struct {
	db              *gorm.DB
	log             *logger.Logger
	fileRepo        repos.FileRepo
	fileViewRepo    repos.FileViewRepo
	transactionRepo repos.TransactionRepo
	bucket          BucketService
	ai              openai.Client
	vectors         pinecone.VectorStore
}

func NewFileService(
	db *gorm.DB,
	log *logger.Logger,
	fileRepo repos.FileRepo,
	fileViewRepo repos.FileViewRepo,
	transactionRepo repos.TransactionRepo,
	bucket BucketService,
	ai openai.Client,
	vectors pinecone.VectorStore,
) FileService {
	return &fileService{
		db:              db,
		log:             log.With("service", "FileService"),
		fileRepo:        fileRepo,
		fileViewRepo:    fileViewRepo,
		transactionRepo: transactionRepo,
		bucket:          bucket,
		ai:              ai,
		vectors:         vectors,
	}
}

func (s *fileService) List(ctx context.Context, ownerID uuid.UUID, filter repos.FileListFilter) ([]*domain.File, error) {
	return s.fileRepo.ListByOwner(ctx, nil, ownerID, filter)
}

func (s *fileService) GetForViewer(ctx context.Context, viewerID, fileID uuid.UUID) (*FileAccess, error) {
	file, err := s.fileRepo.GetByID(ctx, nil, fileID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, apierr.NotFound("file_not_found", err)
		}
		return nil, err
	}

	isOwner := file.OwnerID == viewerID
	canAccess := isOwner || !file.IsPremium
	if !canAccess {
		purchased, err := s.transactionRepo.HasPurchase(ctx, nil, file.ID, viewerID)
		if err != nil {
			return nil, err
		}
		canAccess = purchased
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.fileViewRepo.Create(ctx, tx, &domain.FileView{FileID: file.ID, ViewerID: viewerID}); err != nil {
			return err
		}
		return s.fileRepo.IncrementViews(ctx, tx, file.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("log view of %s: %w", file.ID, err)
	}
	file.TotalViews++

	return &FileAccess{File: file, IsOwner: isOwner, CanAccess: canAccess}, nil
}

func (s *fileService) Update(ctx context.Context, ownerID, fileID uuid.UUID, update FileUpdate) (*domain.File, error) {
	file, err := s.requireOwned(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Category != nil {
		fields["category"] = *update.Category
	}
	if update.IsPremium != nil {
		fields["is_premium"] = *update.IsPremium
	}
	if update.PriceCents != nil {
		if *update.PriceCents < 0 {
			return nil, apierr.BadRequest("negative_price", fmt.Errorf("price must not be negative"))
		}
		fields["price_cents"] = *update.PriceCents
	}
	if len(fields) == 0 {
		return file, nil
	}

	if err := s.fileRepo.Update(ctx, nil, file.ID, fields); err != nil {
		return nil, err
	}
	file, err = s.fileRepo.GetByID(ctx, nil, file.ID)
	if err != nil {
		return nil, err
	}

	// Title and description feed the embedding; refresh so search
	// stays aligned with the visible metadata.
	if update.Title != nil || update.Description != nil || update.Category != nil {
		s.refreshEmbedding(ctx, file)
	}
	return file, nil
}

func (s *fileService) Delete(ctx context.Context, ownerID, fileID uuid.UUID) error {
	file, err := s.requireOwned(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.fileRepo.Delete(ctx, nil, file.ID); err != nil {
		return err
	}

	if err := s.vectors.DeleteIDs(ctx, file.OwnerID.String(), []string{file.ID.String()}); err != nil {
		s.log.Warn("vector cleanup failed", "file_id", file.ID, "error", err)
	}
	if err := s.bucket.Delete(ctx, file.StorageKey); err != nil {
		s.log.Warn("object cleanup failed", "file_id", file.ID, "key", file.StorageKey, "error", err)
	}

	s.log.Info("file deleted", "file_id", file.ID, "owner_id", ownerID)
	return nil
}

func (s *fileService) requireOwned(ctx context.Context, ownerID, fileID uuid.UUID) (*domain.File, error) {
	file, err := s.fileRepo.GetByID(ctx, nil, fileID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, apierr.NotFound("file_not_found", err)
		}
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, apierr.Forbidden(fmt.Errorf("file %s is not owned by %s", fileID, ownerID))
	}
	return file, nil
}

func (s *fileService) refreshEmbedding(ctx context.Context, file *domain.File) {
	text := file.Summary
	if file.Type == domain.FileTypeText || file.Type == domain.FileTypePDF {
		if data, err := s.readStoredObject(ctx, file.StorageKey); err == nil {
			if extracted, err := ExtractText(file.Type, data); err == nil {
				text = extracted
			}
		}
	}

	combined := strings.Join([]string{file.Title, file.Description, file.Summary, truncate(text, embedContentCap)}, "\n\n")
	embeddings, err := s.ai.Embed(ctx, []string{combined})
	if err != nil {
		s.log.Warn("embedding refresh failed", "file_id", file.ID, "error", err)
		return
	}

	s.upsertFileVector(ctx, file, embeddings[0], text)
}

func (s *fileService) upsertFileVector(ctx context.Context, file *domain.File, embedding []float32, content string) {
	err := s.vectors.Upsert(ctx, file.OwnerID.String(), []pinecone.Vector{{
		ID:     file.ID.String(),
		Values: embedding,
		Metadata: map[string]any{
			"content":  truncate(content, vectorContentCap),
			"title":    file.Title,
			"category": file.Category,
			"summary":  file.Summary,
			"type":     string(file.Type),
		},
	}})
	if err != nil {
		s.log.Warn("embedding refresh upsert failed", "file_id", file.ID, "error", err)
	}
}

func (s *fileService) readStoredObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.bucket.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
