package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/communityvault/backend/internal/http/handlers"
	httpMW "github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	FileHandler         *httpH.FileHandler
	ProjectHandler      *httpH.ProjectHandler
	UploadHandler       *httpH.UploadHandler
	PaymentHandler      *httpH.PaymentHandler
	NotificationHandler *httpH.NotificationHandler
	AnalyticsHandler    *httpH.AnalyticsHandler
	SearchHandler       *httpH.SearchHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Stored objects (local storage fallback)
	if cfg.UploadHandler != nil {
		r.GET("/uploads/*path", cfg.UploadHandler.ServeUpload)
	}

	api := r.Group("/api")
	{
		// Auth (public; resolves the Whop token or session cookie itself)
		if cfg.AuthHandler != nil {
			api.POST("/auth/session", cfg.AuthHandler.EstablishSession)
			api.GET("/auth/session", cfg.AuthHandler.SessionStatus)
			api.POST("/auth/validate", cfg.AuthHandler.Validate)
		}

		// Payment webhook (signature-verified, not session-authenticated)
		if cfg.PaymentHandler != nil {
			api.POST("/whop/webhook", cfg.PaymentHandler.Webhook)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Files
		if cfg.FileHandler != nil {
			protected.GET("/files", cfg.FileHandler.List)
			protected.GET("/files/:fileId", cfg.FileHandler.Get)
			protected.PATCH("/files/:fileId", cfg.FileHandler.Update)
			protected.DELETE("/files/:fileId", cfg.FileHandler.Delete)
		}

		// Projects
		if cfg.ProjectHandler != nil {
			protected.GET("/projects", cfg.ProjectHandler.List)
			protected.POST("/projects", cfg.ProjectHandler.Create)
			protected.GET("/projects/:projectId", cfg.ProjectHandler.Get)
			protected.PATCH("/projects/:projectId", cfg.ProjectHandler.Update)
			protected.DELETE("/projects/:projectId", cfg.ProjectHandler.Delete)
		}

		// Upload + ingestion
		if cfg.UploadHandler != nil {
			protected.POST("/upload/presign", cfg.UploadHandler.Presign)
			protected.POST("/upload/local", cfg.UploadHandler.UploadLocal)
			protected.POST("/upload/complete", cfg.UploadHandler.Complete)
		}

		// Checkout
		if cfg.PaymentHandler != nil {
			protected.POST("/checkout", cfg.PaymentHandler.CreateCheckout)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			protected.GET("/notifications", cfg.NotificationHandler.List)
			protected.PATCH("/notifications", cfg.NotificationHandler.MarkRead)
		}

		// Analytics + dashboard
		if cfg.AnalyticsHandler != nil {
			protected.GET("/analytics", cfg.AnalyticsHandler.Report)
			protected.GET("/dashboard/data", cfg.AnalyticsHandler.Dashboard)
		}

		// Search + assistant
		if cfg.SearchHandler != nil {
			protected.POST("/search", cfg.SearchHandler.Search)
			protected.POST("/assistant/ask", cfg.SearchHandler.Ask)
		}
	}

	return r
}
