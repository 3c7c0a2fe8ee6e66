package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/services"
)

type SearchHandler struct {
	log           *logger.Logger
	searchService services.SearchService
}

func NewSearchHandler(log *logger.Logger, searchService services.SearchService) *SearchHandler {
	return &SearchHandler{
		log:           log.With("handler", "SearchHandler"),
		searchService: searchService,
	}
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"topK"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	hits, err := h.searchService.Query(c.Request.Context(), user.ID, req.Query, req.TopK)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": hits})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *SearchHandler) Ask(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	answer, err := h.searchService.Ask(c.Request.Context(), user.ID, req.Question)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, answer)
}
