package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/services"
)

const notificationListLimit = 50

type NotificationHandler struct {
	log                 *logger.Logger
	notificationService services.NotificationService
}

func NewNotificationHandler(log *logger.Logger, notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		log:                 log.With("handler", "NotificationHandler"),
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	notifications, err := h.notificationService.List(c.Request.Context(), user.ID, notificationListLimit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, notifications)
}

type markReadRequest struct {
	NotificationID string `json:"notificationId" binding:"required"`
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	notificationID, err := uuid.Parse(req.NotificationID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_notification_id", err)
		return
	}

	err = h.notificationService.MarkRead(c.Request.Context(), notificationID, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.RespondError(c, http.StatusNotFound, "notification_not_found", err)
		return
	}
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}
