package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/services"
)

type UploadHandler struct {
	log              *logger.Logger
	bucket           services.BucketService
	ingestionService services.IngestionService
}

func NewUploadHandler(log *logger.Logger, bucket services.BucketService, ingestionService services.IngestionService) *UploadHandler {
	return &UploadHandler{
		log:              log.With("handler", "UploadHandler"),
		bucket:           bucket,
		ingestionService: ingestionService,
	}
}

type presignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// Presign hands the client a direct PUT URL when the S3 backend is
// active; the local backend points the client at /api/upload/local.
func (h *UploadHandler) Presign(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	key := services.BuildStorageKey(user.ID, req.Filename)
	publicURL, err := h.bucket.ObjectURL(c.Request.Context(), key)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	uploadURL, err := h.bucket.PresignUpload(c.Request.Context(), key, req.ContentType)
	if errors.Is(err, services.ErrPresignUnsupported) {
		response.RespondOK(c, gin.H{
			"url":       "/api/upload/local",
			"key":       key,
			"publicUrl": publicURL,
			"isLocal":   true,
		})
		return
	}
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"url":       uploadURL,
		"key":       key,
		"publicUrl": publicURL,
	})
}

// UploadLocal receives the object bytes when presigned uploads are
// unavailable. The key must sit inside the caller's own prefix.
func (h *UploadHandler) UploadLocal(c *gin.Context) {
	user := middleware.CurrentUser(c)

	key := c.PostForm("key")
	if key == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_key", fmt.Errorf("key is required"))
		return
	}
	if !strings.HasPrefix(key, user.ID.String()+"/") {
		response.RespondError(c, http.StatusForbidden, "forbidden", fmt.Errorf("key outside caller prefix"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.bucket.Upload(c.Request.Context(), key, file, fileHeader.Size, contentType); err != nil {
		response.RespondServiceError(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"success":   true,
		"key":       key,
		"publicUrl": "/uploads/" + key,
	})
}

type completeRequest struct {
	Key         string  `json:"key" binding:"required"`
	Filename    string  `json:"filename" binding:"required"`
	Title       string  `json:"title" binding:"required,min=2"`
	Description string  `json:"description" binding:"required,min=10"`
	Category    string  `json:"category" binding:"required,min=2"`
	ProjectID   *string `json:"projectId"`
	IsPremium   bool    `json:"isPremium"`
	PriceCents  int64   `json:"priceCents"`
	Currency    string  `json:"currency"`
	ContentType string  `json:"originalContentType"`
}

// Complete finalizes an upload: the object is already in storage, this
// runs the ingestion pipeline over it.
func (h *UploadHandler) Complete(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	input := services.IngestInput{
		StorageKey:  req.Key,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		IsPremium:   req.IsPremium,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
	}
	if req.ProjectID != nil && *req.ProjectID != "" {
		projectID, err := uuid.Parse(*req.ProjectID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
			return
		}
		input.ProjectID = &projectID
	}

	file, err := h.ingestionService.Ingest(c.Request.Context(), user.ID, input)
	if err != nil {
		var dup *services.DuplicateFileError
		if errors.As(err, &dup) {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "This file already exists in your vault.",
				"fileId": dup.ExistingID,
			})
			return
		}
		if ae := apierr.From(err); ae != nil {
			response.RespondError(c, ae.Status, ae.Code, ae)
			return
		}
		h.log.Error("ingestion failed", "key", req.Key, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "ingestion_failed", fmt.Errorf("failed to process upload"))
		return
	}

	response.RespondCreated(c, file)
}

var uploadContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/plain",
	".json": "application/json",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
}

// ServeUpload streams locally stored objects for /uploads/*path.
func (h *UploadHandler) ServeUpload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if key == "" || strings.Contains(key, "..") {
		response.RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("file not found"))
		return
	}

	rc, err := h.bucket.Open(c.Request.Context(), key)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("file not found"))
		return
	}
	defer rc.Close()

	contentType := uploadContentTypes[strings.ToLower(filepath.Ext(key))]
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(key))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
