package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/clients/openai"
	"github.com/communityvault/backend/internal/clients/pinecone"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/queue"
	"github.com/communityvault/backend/internal/repos"
)

const (
	summarizeContentCap = 30000
	embedContentCap     = 2000
	vectorContentCap    = 8000
)

// DuplicateFileError signals that the owner already holds an identical
// object; ExistingID points at the prior upload.
type DuplicateFileError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("file already exists as %s", e.ExistingID)
}

// DocumentSummary is the structured output of a summarization call.
type DocumentSummary struct {
	Summary   string
	KeyPoints []string
}

type IngestInput struct {
	StorageKey  string
	Filename    string
	ContentType string
	Title       string
	Description string
	Category    string
	ProjectID   *uuid.UUID
	IsPremium   bool
	PriceCents  int64
	Currency    string
}

// IngestionService turns an uploaded object into a searchable vault
// entry: checksum dedup, text extraction, summarization, embedding,
// vector upsert, project rollup, broadcast enqueue.
type IngestionService interface {
	Ingest(ctx context.Context, ownerID uuid.UUID, input IngestInput) (*domain.File, error)
}

// BroadcastEnqueuer is the slice of the redis job queue ingestion needs.
type BroadcastEnqueuer interface {
	Enqueue(ctx context.Context, fileID string) (queue.JobStatus, error)
}

type ingestionService struct {
	db          *gorm.DB
	log         *logger.Logger
	fileRepo    repos.FileRepo
	projectRepo repos.ProjectRepo
	bucket      BucketService
	ai          openai.Client
	vectors     pinecone.VectorStore
	broadcast   BroadcastEnqueuer
}

func NewIngestionService(
	db *gorm.DB,
	log *logger.Logger,
	fileRepo repos.FileRepo,
	projectRepo repos.ProjectRepo,
	bucket BucketService,
	ai openai.Client,
	vectors pinecone.VectorStore,
	broadcast BroadcastEnqueuer,
) IngestionService {
	return &ingestionService{
		db:          db,
		log:         log.With("service", "IngestionService"),
		fileRepo:    fileRepo,
		projectRepo: projectRepo,
		bucket:      bucket,
		ai:          ai,
		vectors:     vectors,
		broadcast:   broadcast,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, ownerID uuid.UUID, input IngestInput) (*domain.File, error) {
	if input.IsPremium && input.PriceCents <= 0 {
		return nil, apierr.BadRequest("premium_price_required", fmt.Errorf("premium files need a positive price"))
	}
	if strings.TrimSpace(input.Currency) == "" {
		input.Currency = "USD"
	}

	data, err := s.readObject(ctx, input.StorageKey)
	if err != nil {
		return nil, apierr.BadRequest("object_unreadable", fmt.Errorf("read uploaded object %q: %w", input.StorageKey, err))
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	fileType, err := DetectFileType(input.Filename, input.ContentType, data)
	if err != nil {
		return nil, apierr.BadRequest("unsupported_file_type", err)
	}

	storageURL, err := s.bucket.ObjectURL(ctx, input.StorageKey)
	if err != nil {
		s.log.Warn("object url unavailable", "key", input.StorageKey, "error", err)
	}

	file, err := s.fileRepo.Create(ctx, nil, &domain.File{
		OwnerID:     ownerID,
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Type:        fileType,
		StorageKey:  input.StorageKey,
		StorageURL:  storageURL,
		Checksum:    checksum,
		IsPremium:   input.IsPremium,
		PriceCents:  input.PriceCents,
		Currency:    strings.ToUpper(input.Currency),
	})
	if err != nil {
		if repos.IsUniqueViolation(err) {
			existing, lookupErr := s.fileRepo.GetByOwnerAndChecksum(ctx, nil, ownerID, checksum)
			if lookupErr != nil {
				return nil, fmt.Errorf("duplicate upload, lookup failed: %w", lookupErr)
			}
			return nil, apierr.Conflict("duplicate_file", &DuplicateFileError{ExistingID: existing.ID})
		}
		return nil, err
	}

	contentText, err := s.extractContent(ctx, fileType, input.Filename, data)
	if err != nil {
		return nil, s.abandonFile(ctx, file.ID, err)
	}

	summary, err := s.summarizeDocument(ctx, input.Title, fileType, contentText)
	if err != nil {
		return nil, s.abandonFile(ctx, file.ID, err)
	}

	embedding, err := s.embedFile(ctx, input, summary, contentText)
	if err != nil {
		return nil, s.abandonFile(ctx, file.ID, err)
	}

	keyPoints, err := json.Marshal(summary.KeyPoints)
	if err != nil {
		return nil, s.abandonFile(ctx, file.ID, fmt.Errorf("encode key points: %w", err))
	}
	fields := map[string]any{
		"summary":    summary.Summary,
		"key_points": datatypes.JSON(keyPoints),
	}
	if fileType == domain.FileTypeVideo {
		fields["transcript"] = contentText
	}
	if err := s.fileRepo.Update(ctx, nil, file.ID, fields); err != nil {
		return nil, s.abandonFile(ctx, file.ID, err)
	}
	file.Summary = summary.Summary
	file.KeyPoints = datatypes.JSON(keyPoints)
	if fileType == domain.FileTypeVideo {
		file.Transcript = &contentText
	}

	// The row is committed before the vector write, so a failure here
	// leaves the file searchable by title only. Logged, not fatal.
	s.upsertVector(ctx, ownerID, file, embedding, contentText)

	if input.ProjectID != nil {
		s.rollupProject(ctx, *input.ProjectID)
	}

	if s.broadcast != nil {
		if _, err := s.broadcast.Enqueue(ctx, file.ID.String()); err != nil {
			s.log.Warn("broadcast enqueue failed", "file_id", file.ID, "error", err)
		}
	}

	s.log.Info("file ingested", "file_id", file.ID, "owner_id", ownerID, "type", fileType)
	return file, nil
}

// abandonFile deletes the row inserted at the start of Ingest so a
// failed run does not leave a half-ingested file holding the
// (owner, checksum) slot against retries. The delete is best-effort;
// the pipeline error is returned either way.
func (s *ingestionService) abandonFile(ctx context.Context, fileID uuid.UUID, cause error) error {
	if delErr := s.fileRepo.Delete(ctx, nil, fileID); delErr != nil {
		s.log.Error("cleanup of failed ingest left an orphan row", "file_id", fileID, "error", delErr)
	}
	return cause
}

func (s *ingestionService) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.bucket.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ingestionService) extractContent(ctx context.Context, fileType domain.FileType, filename string, data []byte) (string, error) {
	if fileType == domain.FileTypeVideo {
		transcript, err := s.ai.Transcribe(ctx, filename, bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("transcribe %q: %w", filename, err)
		}
		return transcript, nil
	}

	text, err := ExtractText(fileType, data)
	if err != nil {
		return "", apierr.BadRequest("text_extraction_failed", err)
	}
	return text, nil
}

var documentSummarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{
			"type":        "string",
			"description": "Concise summary, at most 120 words.",
		},
		"keyPoints": map[string]any{
			"type":        "array",
			"description": "3-5 actionable key points.",
			"items":       map[string]any{"type": "string"},
		},
	},
	"required":             []string{"summary", "keyPoints"},
	"additionalProperties": false,
}

func (s *ingestionService) summarizeDocument(ctx context.Context, title string, fileType domain.FileType, content string) (*DocumentSummary, error) {
	system := "You are a world-class knowledge management assistant for a creator content vault."
	user := fmt.Sprintf(
		"Summarize this %s titled %q. Produce a concise summary (max 120 words) and 3-5 bullet key points capturing the most actionable insights.\n\nContent:\n%s",
		strings.ToLower(string(fileType)), title, truncate(content, summarizeContentCap),
	)

	out, err := s.ai.GenerateJSON(ctx, system, user, "document_summary", documentSummarySchema)
	if err == nil {
		if parsed := parseDocumentSummary(out); parsed != nil {
			return parsed, nil
		}
		s.log.Warn("summary payload malformed, degrading to plain text", "title", title)
	} else {
		s.log.Warn("structured summary failed, degrading to plain text", "title", title, "error", err)
	}

	// Degraded path: take whatever text the model gives as the summary.
	text, err := s.ai.GenerateText(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("summarize %q: %w", title, err)
	}
	return &DocumentSummary{Summary: strings.TrimSpace(text), KeyPoints: []string{}}, nil
}

func parseDocumentSummary(out map[string]any) *DocumentSummary {
	summary, ok := out["summary"].(string)
	if !ok || strings.TrimSpace(summary) == "" {
		return nil
	}
	rawPoints, ok := out["keyPoints"].([]any)
	if !ok {
		return nil
	}
	points := make([]string, 0, len(rawPoints))
	for _, p := range rawPoints {
		if sp, ok := p.(string); ok && strings.TrimSpace(sp) != "" {
			points = append(points, sp)
		}
	}
	return &DocumentSummary{Summary: summary, KeyPoints: points}
}

func (s *ingestionService) embedFile(ctx context.Context, input IngestInput, summary *DocumentSummary, content string) ([]float32, error) {
	text := strings.Join([]string{
		input.Title,
		input.Description,
		summary.Summary,
		strings.Join(summary.KeyPoints, "\n"),
		truncate(content, embedContentCap),
	}, "\n\n")

	vectors, err := s.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", input.Title, err)
	}
	return vectors[0], nil
}

func (s *ingestionService) upsertVector(ctx context.Context, ownerID uuid.UUID, file *domain.File, embedding []float32, content string) {
	err := s.vectors.Upsert(ctx, ownerID.String(), []pinecone.Vector{{
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
		s.log.Error("vector upsert failed, file not semantically searchable", "file_id", file.ID, "error", err)
	}
}

var projectSummarySchema = documentSummarySchema

func (s *ingestionService) rollupProject(ctx context.Context, projectID uuid.UUID) {
	files, err := s.fileRepo.ListByProject(ctx, nil, projectID)
	if err != nil {
		s.log.Warn("project rollup skipped, list failed", "project_id", projectID, "error", err)
		return
	}
	if len(files) == 0 {
		return
	}

	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "Title: %s\nSummary: %s\n\n", f.Title, f.Summary)
	}

	out, err := s.ai.GenerateJSON(ctx,
		"You combine multiple document summaries into one cohesive overview of a content collection. Keep the summary under 180 words.",
		"Summaries:\n"+b.String(),
		"project_summary", projectSummarySchema,
	)
	if err != nil {
		s.log.Warn("project rollup failed", "project_id", projectID, "error", err)
		return
	}
	parsed := parseDocumentSummary(out)
	if parsed == nil {
		s.log.Warn("project rollup payload malformed", "project_id", projectID)
		return
	}

	if err := s.projectRepo.UpdateSummary(ctx, nil, projectID, parsed.Summary); err != nil {
		s.log.Warn("project rollup persist failed", "project_id", projectID, "error", err)
	}
}

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
