package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
	"github.com/communityvault/backend/internal/services"
)

type FileHandler struct {
	log         *logger.Logger
	fileService services.FileService
}

func NewFileHandler(log *logger.Logger, fileService services.FileService) *FileHandler {
	return &FileHandler{log: log.With("handler", "FileHandler"), fileService: fileService}
}

func (h *FileHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	filter := repos.FileListFilter{
		Category: c.Query("category"),
		Search:   c.Query("q"),
	}
	if raw := c.Query("projectId"); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
			return
		}
		filter.ProjectID = &projectID
	}

	files, err := h.fileService.List(c.Request.Context(), user.ID, filter)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, files)
}

func (h *FileHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}

	access, err := h.fileService.GetForViewer(c.Request.Context(), user.ID, fileID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	if access.CanAccess {
		c.JSON(http.StatusOK, gin.H{
			"id":              access.File.ID,
			"owner_id":        access.File.OwnerID,
			"project_id":      access.File.ProjectID,
			"title":           access.File.Title,
			"description":     access.File.Description,
			"category":        access.File.Category,
			"type":            access.File.Type,
			"storage_key":     access.File.StorageKey,
			"storage_url":     access.File.StorageURL,
			"summary":         access.File.Summary,
			"key_points":      access.File.KeyPoints,
			"transcript":      access.File.Transcript,
			"is_premium":      access.File.IsPremium,
			"price_cents":     access.File.PriceCents,
			"currency":        access.File.Currency,
			"total_views":     access.File.TotalViews,
			"total_purchases": access.File.TotalPurchases,
			"created_at":      access.File.CreatedAt,
			"canAccess":       true,
		})
		return
	}

	// Redacted preview for unpurchased premium content: no storage
	// location, key points, or transcript.
	c.JSON(http.StatusOK, gin.H{
		"id":          access.File.ID,
		"title":       access.File.Title,
		"description": access.File.Description,
		"summary":     access.File.Summary,
		"category":    access.File.Category,
		"type":        access.File.Type,
		"is_premium":  access.File.IsPremium,
		"price_cents": access.File.PriceCents,
		"currency":    access.File.Currency,
		"canAccess":   false,
	})
}

type fileUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	IsPremium   *bool   `json:"isPremium"`
	PriceCents  *int64  `json:"priceCents"`
}

func (h *FileHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}

	var req fileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.Title != nil && len(*req.Title) < 2 {
		response.RespondError(c, http.StatusBadRequest, "invalid_title", fmt.Errorf("title too short"))
		return
	}

	file, err := h.fileService.Update(c.Request.Context(), user.ID, fileID, services.FileUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		IsPremium:   req.IsPremium,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, file)
}

func (h *FileHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), user.ID, fileID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}
