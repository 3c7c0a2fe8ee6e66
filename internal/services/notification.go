package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/clients/sendgrid"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/queue"
	"github.com/communityvault/backend/internal/repos"
)

const broadcastFanoutConcurrency = 8

// EmailContent is the optional email mirror of an in-app notification.
type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

// NotificationService persists in-app notifications and mirrors them to
// email on a best-effort basis. Email delivery never gates the row.
type NotificationService interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationType, payload map[string]any, email *EmailContent) (*domain.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error

	// BroadcastNewContent fans a NEW_CONTENT notification out to every
	// viewer and creator except the file owner. It runs on the queue
	// worker, not the upload request path.
	BroadcastNewContent(ctx context.Context, job queue.JobStatus) error
}

type notificationService struct {
	db               *gorm.DB
	log              *logger.Logger
	notificationRepo repos.NotificationRepo
	userRepo         repos.UserRepo
	fileRepo         repos.FileRepo
	sendgrid         sendgrid.Client
}

// NewNotificationService accepts a nil sendgrid client; email mirroring
// is then disabled.
func NewNotificationService(
	db *gorm.DB,
	log *logger.Logger,
	notificationRepo repos.NotificationRepo,
	userRepo repos.UserRepo,
	fileRepo repos.FileRepo,
	sendgridClient sendgrid.Client,
) NotificationService {
	return &notificationService{
		db:               db,
		log:              log.With("service", "NotificationService"),
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		fileRepo:         fileRepo,
		sendgrid:         sendgridClient,
	}
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationType, payload map[string]any, email *EmailContent) (*domain.Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode notification payload: %w", err)
	}

	n, err := s.notificationRepo.Create(ctx, nil, &domain.Notification{
		UserID:  userID,
		Type:    kind,
		Payload: datatypes.JSON(raw),
	})
	if err != nil {
		return nil, err
	}

	if email != nil && s.sendgrid != nil {
		s.sendEmail(ctx, userID, email)
	}
	return n, nil
}

func (s *notificationService) sendEmail(ctx context.Context, userID uuid.UUID, email *EmailContent) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		s.log.Warn("notification email skipped, user lookup failed", "user_id", userID, "error", err)
		return
	}
	if strings.TrimSpace(user.Email) == "" {
		return
	}

	_, err = s.sendgrid.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: user.Email, Name: user.Name}},
		Subject: email.Subject,
		Text:    email.Text,
		HTML:    email.HTML,
	})
	if err != nil {
		s.log.Warn("notification email failed", "user_id", userID, "error", err)
	}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, nil, userID, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	affected, err := s.notificationRepo.MarkRead(ctx, nil, notificationID, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *notificationService) BroadcastNewContent(ctx context.Context, job queue.JobStatus) error {
	fileID, err := uuid.Parse(job.FileID)
	if err != nil {
		return fmt.Errorf("broadcast job %s: bad file id %q: %w", job.ID, job.FileID, err)
	}

	file, err := s.fileRepo.GetByID(ctx, nil, fileID)
	if err != nil {
		if repos.IsNotFound(err) {
			// File was deleted between enqueue and delivery.
			s.log.Warn("broadcast skipped, file gone", "file_id", fileID)
			return nil
		}
		return err
	}

	targets, err := s.userRepo.ListBroadcastTargets(ctx, nil, file.OwnerID, []domain.UserRole{domain.RoleViewer, domain.RoleCreator})
	if err != nil {
		return err
	}

	payload := map[string]any{
		"fileId":    file.ID.String(),
		"fileTitle": file.Title,
		"ownerId":   file.OwnerID.String(),
		"category":  file.Category,
		"isPremium": file.IsPremium,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastFanoutConcurrency)
	for _, target := range targets {
		g.Go(func() error {
			if _, err := s.Notify(gctx, target.ID, domain.NotificationNewContent, payload, nil); err != nil {
				s.log.Warn("broadcast notify failed", "file_id", fileID, "user_id", target.ID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.log.Info("broadcast delivered", "file_id", fileID, "recipients", len(targets))
	return nil
}
