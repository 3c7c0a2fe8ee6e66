package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/clients/whop"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/platform/envutil"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
)

// WebhookEvent is the decoded body of a Whop webhook delivery. The HTTP
// layer verifies the signature over the raw body before decoding.
type WebhookEvent struct {
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	ID          string            `json:"id"`
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
}

// PaymentService builds hosted checkout sessions for premium files and
// settles purchases delivered by webhook.
type PaymentService interface {
	CreateCheckout(ctx context.Context, purchaserID, fileID uuid.UUID, successPath, cancelPath string) (*whop.CheckoutSession, error)
	HandleWebhook(ctx context.Context, event WebhookEvent) error
}

type paymentService struct {
	db              *gorm.DB
	log             *logger.Logger
	fileRepo        repos.FileRepo
	userRepo        repos.UserRepo
	transactionRepo repos.TransactionRepo
	notifications   NotificationService
	whop            whop.Client
	appURL          string
}

func NewPaymentService(
	db *gorm.DB,
	log *logger.Logger,
	fileRepo repos.FileRepo,
	userRepo repos.UserRepo,
	transactionRepo repos.TransactionRepo,
	notifications NotificationService,
	whopClient whop.Client,
) PaymentService {
	return &paymentService{
		db:              db,
		log:             log.With("service", "PaymentService"),
		fileRepo:        fileRepo,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		notifications:   notifications,
		whop:            whopClient,
		appURL:          strings.TrimRight(envutil.Str("APP_URL", "http://localhost:3000"), "/"),
	}
}

func (s *paymentService) CreateCheckout(ctx context.Context, purchaserID, fileID uuid.UUID, successPath, cancelPath string) (*whop.CheckoutSession, error) {
	file, err := s.fileRepo.GetByID(ctx, nil, fileID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, apierr.NotFound("file_not_found", err)
		}
		return nil, err
	}
	if !file.IsPremium {
		return nil, apierr.BadRequest("file_not_premium", fmt.Errorf("file %s does not require checkout", fileID))
	}

	purchaser, err := s.userRepo.GetByID(ctx, nil, purchaserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(purchaser.WhopUserID) == "" {
		return nil, apierr.BadRequest("purchaser_unlinked", fmt.Errorf("purchaser %s has no whop identity", purchaserID))
	}

	owner, err := s.userRepo.GetByID(ctx, nil, file.OwnerID)
	if err != nil {
		return nil, err
	}

	if successPath == "" {
		successPath = "/dashboard"
	}
	if cancelPath == "" {
		cancelPath = "/dashboard"
	}

	description := file.Summary
	if strings.TrimSpace(description) == "" {
		description = file.Description
	}

	session, err := s.whop.BuildCheckoutSession(whop.CheckoutParams{
		AmountCents: file.PriceCents,
		Currency:    file.Currency,
		Title:       file.Title,
		Description: description,
		SuccessURL:  fmt.Sprintf("%s%s?checkout=success&fileId=%s", s.appURL, successPath, file.ID),
		CancelURL:   fmt.Sprintf("%s%s?checkout=cancelled", s.appURL, cancelPath),
		Metadata: map[string]string{
			"fileId":          file.ID.String(),
			"purchaserId":     purchaserID.String(),
			"ownerId":         file.OwnerID.String(),
			"purchaserWhopId": purchaser.WhopUserID,
			"ownerWhopId":     owner.WhopUserID,
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout session built", "file_id", fileID, "purchaser_id", purchaserID, "session_id", session.ID)
	return session, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	switch event.Type {
	case "payment.succeeded":
		return s.settlePurchase(ctx, event.Data)
	case "membership.created":
		s.log.Info("membership created", "external_id", event.Data.ID)
		return nil
	default:
		s.log.Debug("ignoring webhook event", "type", event.Type)
		return nil
	}
}

func (s *paymentService) settlePurchase(ctx context.Context, payment WebhookEventData) error {
	fileIDRaw := payment.Metadata["fileId"]
	purchaserIDRaw := payment.Metadata["purchaserId"]
	if fileIDRaw == "" || purchaserIDRaw == "" {
		s.log.Warn("payment webhook missing fileId or purchaserId metadata", "external_id", payment.ID)
		return nil
	}

	fileID, err := uuid.Parse(fileIDRaw)
	if err != nil {
		s.log.Warn("payment webhook carries malformed fileId", "file_id", fileIDRaw, "external_id", payment.ID)
		return nil
	}
	purchaserID, err := uuid.Parse(purchaserIDRaw)
	if err != nil {
		s.log.Warn("payment webhook carries malformed purchaserId", "purchaser_id", purchaserIDRaw, "external_id", payment.ID)
		return nil
	}

	file, err := s.fileRepo.GetByID(ctx, nil, fileID)
	if err != nil {
		if repos.IsNotFound(err) {
			s.log.Warn("payment webhook references unknown file", "file_id", fileID, "external_id", payment.ID)
			return nil
		}
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, nil, purchaserID); err != nil {
		if repos.IsNotFound(err) {
			s.log.Warn("payment webhook references unknown purchaser", "purchaser_id", purchaserID, "external_id", payment.ID)
			return nil
		}
		return err
	}

	amount := payment.AmountCents
	if amount <= 0 {
		amount = file.PriceCents
	}
	currency := payment.Currency
	if strings.TrimSpace(currency) == "" {
		currency = file.Currency
	}

	split, err := SplitPayout(amount)
	if err != nil {
		return fmt.Errorf("settle payment %s: %w", payment.ID, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.fileRepo.IncrementPurchases(ctx, tx, file.ID); err != nil {
			return err
		}
		if _, err := s.transactionRepo.Create(ctx, tx, &domain.Transaction{
			FileID:              file.ID,
			PurchaserID:         purchaserID,
			CreatorID:           file.OwnerID,
			AmountCents:         split.AmountCents,
			Currency:            strings.ToUpper(currency),
			CreatorShareCents:   split.CreatorShareCents,
			CommunityShareCents: split.CommunityShareCents,
			PlatformShareCents:  split.PlatformShareCents,
			ExternalReference:   payment.ID,
		}); err != nil {
			return err
		}
		return s.userRepo.CreditEarnings(ctx, tx, file.OwnerID, split.CreatorShareCents)
	})
	if err != nil {
		return fmt.Errorf("settle payment %s: %w", payment.ID, err)
	}

	s.notifyPurchase(ctx, file, purchaserID, split, strings.ToUpper(currency))

	s.log.Info("purchase settled",
		"file_id", file.ID,
		"purchaser_id", purchaserID,
		"amount_cents", split.AmountCents,
		"creator_share_cents", split.CreatorShareCents,
	)
	return nil
}

func (s *paymentService) notifyPurchase(ctx context.Context, file *domain.File, purchaserID uuid.UUID, split PayoutSplit, currency string) {
	purchaserName := purchaserID.String()
	if purchaser, err := s.userRepo.GetByID(ctx, nil, purchaserID); err == nil && strings.TrimSpace(purchaser.Name) != "" {
		purchaserName = purchaser.Name
	}

	amount := fmt.Sprintf("%d.%02d %s", split.AmountCents/100, split.AmountCents%100, currency)
	_, err := s.notifications.Notify(ctx, file.OwnerID, domain.NotificationPurchase,
		map[string]any{
			"purchaserName": purchaserName,
			"fileId":        file.ID.String(),
			"fileTitle":     file.Title,
			"amountCents":   split.AmountCents,
			"currency":      currency,
		},
		&EmailContent{
			Subject: fmt.Sprintf("%s purchased %s", purchaserName, file.Title),
			HTML:    fmt.Sprintf("<p>%s just purchased <strong>%s</strong> for %s. Keep the momentum going!</p>", purchaserName, file.Title, amount),
		},
	)
	if err != nil {
		s.log.Warn("purchase notification failed", "file_id", file.ID, "creator_id", file.OwnerID, "error", err)
	}
}
