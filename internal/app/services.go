package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/queue"
	"github.com/communityvault/backend/internal/services"
)

type Services struct {
	Auth         services.AuthService
	Bucket       services.BucketService
	Notification services.NotificationService
	Ingestion    services.IngestionService
	File         services.FileService
	Project      services.ProjectService
	Payment      services.PaymentService
	Search       services.SearchService
	Analytics    services.AnalyticsService

	// BroadcastQueue is nil when REDIS_ADDR is unset; new-content
	// fan-out is then skipped.
	BroadcastQueue *queue.RedisJobQueue
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	bucket, err := services.NewBucketService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init bucket service: %w", err)
	}

	var broadcastQueue *queue.RedisJobQueue
	if cfg.RedisAddr != "" {
		broadcastQueue, err = queue.NewRedisJobQueue(log, cfg.Queue)
		if err != nil {
			return Services{}, fmt.Errorf("init broadcast queue: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set; new-content broadcast runs inline")
	}

	auth := services.NewAuthService(db, log, reposet.User, clients.Whop)
	notification := services.NewNotificationService(db, log, reposet.Notification, reposet.User, reposet.File, clients.Sendgrid)

	var enqueuer services.BroadcastEnqueuer
	if broadcastQueue != nil {
		enqueuer = broadcastQueue
	} else {
		enqueuer = &inlineBroadcaster{log: log.With("service", "InlineBroadcaster"), notifications: notification}
	}
	ingestion := services.NewIngestionService(db, log, reposet.File, reposet.Project, bucket, clients.Openai, clients.Vectors, enqueuer)

	file := services.NewFileService(db, log, reposet.File, reposet.FileView, reposet.Transaction, bucket, clients.Openai, clients.Vectors)
	project := services.NewProjectService(db, log, reposet.Project, reposet.File)
	payment := services.NewPaymentService(db, log, reposet.File, reposet.User, reposet.Transaction, notification, clients.Whop)
	search := services.NewSearchService(log, clients.Openai, clients.Vectors)
	analytics := services.NewAnalyticsService(log, reposet.File, reposet.FileView, reposet.Transaction)

	return Services{
		Auth:           auth,
		Bucket:         bucket,
		Notification:   notification,
		Ingestion:      ingestion,
		File:           file,
		Project:        project,
		Payment:        payment,
		Search:         search,
		Analytics:      analytics,
		BroadcastQueue: broadcastQueue,
	}, nil
}

// inlineBroadcaster dispatches fan-out in-process when no queue is
// configured. Delivery is lost on crash; acceptable for single-node
// deployments.
type inlineBroadcaster struct {
	log           *logger.Logger
	notifications services.NotificationService
}

func (b *inlineBroadcaster) Enqueue(ctx context.Context, fileID string) (queue.JobStatus, error) {
	now := time.Now().UTC()
	job := queue.JobStatus{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Status:    "inline",
		CreatedAt: now,
		UpdatedAt: now,
	}
	go func() {
		if err := b.notifications.BroadcastNewContent(context.Background(), job); err != nil {
			b.log.Warn("inline broadcast failed", "file_id", fileID, "error", err)
		}
	}()
	return job, nil
}
