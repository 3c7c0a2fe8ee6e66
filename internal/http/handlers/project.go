package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/services"
)

type ProjectHandler struct {
	log            *logger.Logger
	projectService services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{log: log.With("handler", "ProjectHandler"), projectService: projectService}
}

func (h *ProjectHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	projects, err := h.projectService.List(c.Request.Context(), user.ID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, projects)
}

type projectCreateRequest struct {
	Name        string `json:"name" binding:"required,min=2"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req projectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), user.ID, req.Name, req.Description, req.Category)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, project)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}

	detail, err := h.projectService.Get(c.Request.Context(), user.ID, projectID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

type projectUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

func (h *ProjectHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}

	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), user.ID, projectID, services.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), user.ID, projectID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}
