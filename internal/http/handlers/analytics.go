package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
	"github.com/communityvault/backend/internal/services"
)

const dashboardNotificationLimit = 10

type AnalyticsHandler struct {
	log                 *logger.Logger
	analyticsService    services.AnalyticsService
	fileService         services.FileService
	projectService      services.ProjectService
	notificationService services.NotificationService
}

func NewAnalyticsHandler(
	log *logger.Logger,
	analyticsService services.AnalyticsService,
	fileService services.FileService,
	projectService services.ProjectService,
	notificationService services.NotificationService,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:                 log.With("handler", "AnalyticsHandler"),
		analyticsService:    analyticsService,
		fileService:         fileService,
		projectService:      projectService,
		notificationService: notificationService,
	}
}

func (h *AnalyticsHandler) Report(c *gin.Context) {
	user := middleware.CurrentUser(c)

	report, err := h.analyticsService.Report(c.Request.Context(), user.ID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, report)
}

// Dashboard returns everything the dashboard view needs in one round
// trip: profile, files, projects, category counts, analytics, and
// unread notifications.
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	files, err := h.fileService.List(ctx, user.ID, repos.FileListFilter{})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	projects, err := h.projectService.List(ctx, user.ID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	report, err := h.analyticsService.Report(ctx, user.ID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	notifications, err := h.notificationService.List(ctx, user.ID, 0)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	unread := make([]*domain.Notification, 0, dashboardNotificationLimit)
	for _, n := range notifications {
		if n.ReadAt == nil {
			unread = append(unread, n)
			if len(unread) == dashboardNotificationLimit {
				break
			}
		}
	}

	categoryCounts := map[string]int{}
	for _, f := range files {
		if f.Category != "" {
			categoryCounts[f.Category]++
		}
	}
	categories := make([]gin.H, 0, len(categoryCounts))
	for name, count := range categoryCounts {
		categories = append(categories, gin.H{"name": name, "count": count})
	}

	response.RespondOK(c, gin.H{
		"user": gin.H{
			"id":   user.ID,
			"name": user.Name,
			"role": user.Role,
		},
		"files":         files,
		"projects":      projects,
		"categories":    categories,
		"analytics":     report,
		"notifications": unread,
	})
}
