package app

import (
	"github.com/gin-gonic/gin"

	"github.com/communityvault/backend/internal/clients/whop"
	api "github.com/communityvault/backend/internal/http"
	httpH "github.com/communityvault/backend/internal/http/handlers"
	httpMW "github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Auth         *httpH.AuthHandler
	File         *httpH.FileHandler
	Project      *httpH.ProjectHandler
	Upload       *httpH.UploadHandler
	Payment      *httpH.PaymentHandler
	Notification *httpH.NotificationHandler
	Analytics    *httpH.AnalyticsHandler
	Search       *httpH.SearchHandler
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, serviceset.Auth),
	}
}

func wireHandlers(log *logger.Logger, serviceset Services, whopClient whop.Client) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(),
		Auth:         httpH.NewAuthHandler(log, serviceset.Auth),
		File:         httpH.NewFileHandler(log, serviceset.File),
		Project:      httpH.NewProjectHandler(log, serviceset.Project),
		Upload:       httpH.NewUploadHandler(log, serviceset.Bucket, serviceset.Ingestion),
		Payment:      httpH.NewPaymentHandler(log, serviceset.Payment, whopClient),
		Notification: httpH.NewNotificationHandler(log, serviceset.Notification),
		Analytics:    httpH.NewAnalyticsHandler(log, serviceset.Analytics, serviceset.File, serviceset.Project, serviceset.Notification),
		Search:       httpH.NewSearchHandler(log, serviceset.Search),
	}
}

func wireRouter(log *logger.Logger, handlerset Handlers, middleware Middleware) *gin.Engine {
	return api.NewRouter(api.RouterConfig{
		Log: log,

		HealthHandler:  handlerset.Health,
		AuthHandler:    handlerset.Auth,
		AuthMiddleware: middleware.Auth,

		FileHandler:         handlerset.File,
		ProjectHandler:      handlerset.Project,
		UploadHandler:       handlerset.Upload,
		PaymentHandler:      handlerset.Payment,
		NotificationHandler: handlerset.Notification,
		AnalyticsHandler:    handlerset.Analytics,
		SearchHandler:       handlerset.Search,
	})
}
