package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/clients/whop"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/queue"
	"github.com/communityvault/backend/internal/repos"
	"github.com/communityvault/backend/internal/repos/testutil"
)

type fakeWhop struct {
	lastCheckout whop.CheckoutParams
}

func (w *fakeWhop) VerifyUserToken(token string) (string, error) { return "", nil }

func (w *fakeWhop) GetUser(ctx context.Context, whopUserID string) (*whop.User, error) {
	return &whop.User{ID: whopUserID}, nil
}

func (w *fakeWhop) BuildCheckoutSession(params whop.CheckoutParams) (*whop.CheckoutSession, error) {
	w.lastCheckout = params
	return &whop.CheckoutSession{ID: "session_test", URL: "https://whop.com/checkout?x=1"}, nil
}

func (w *fakeWhop) VerifyWebhookSignature(payload []byte, signature string) bool { return true }

type recordedNotification struct {
	userID  uuid.UUID
	kind    domain.NotificationType
	payload map[string]any
	email   *EmailContent
}

type fakeNotifier struct {
	sent []recordedNotification
}

func (n *fakeNotifier) Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationType, payload map[string]any, email *EmailContent) (*domain.Notification, error) {
	n.sent = append(n.sent, recordedNotification{userID: userID, kind: kind, payload: payload, email: email})
	return &domain.Notification{UserID: userID, Type: kind}, nil
}

func (n *fakeNotifier) List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	return nil, nil
}

func (n *fakeNotifier) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return nil
}

func (n *fakeNotifier) BroadcastNewContent(ctx context.Context, job queue.JobStatus) error {
	return nil
}

type paymentHarness struct {
	tx       *gorm.DB
	svc      PaymentService
	whop     *fakeWhop
	notifier *fakeNotifier
	fileRepo repos.FileRepo
	userRepo repos.UserRepo
	txRepo   repos.TransactionRepo
}

func newPaymentHarness(t *testing.T) *paymentHarness {
	t.Helper()

	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)

	h := &paymentHarness{
		tx:       tx,
		whop:     &fakeWhop{},
		notifier: &fakeNotifier{},
		fileRepo: repos.NewFileRepo(tx, log),
		userRepo: repos.NewUserRepo(tx, log),
		txRepo:   repos.NewTransactionRepo(tx, log),
	}
	h.svc = NewPaymentService(tx, log, h.fileRepo, h.userRepo, h.txRepo, h.notifier, h.whop)
	return h
}

func (h *paymentHarness) seedPurchase(t *testing.T, priceCents int64) (owner, purchaser *domain.User, file *domain.File) {
	t.Helper()
	ctx := context.Background()

	owner, err := h.userRepo.Create(ctx, nil, &domain.User{WhopUserID: "whop_owner", Name: "Owner", Role: domain.RoleCreator})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	purchaser, err = h.userRepo.Create(ctx, nil, &domain.User{WhopUserID: "whop_buyer", Name: "Buyer", Role: domain.RoleViewer})
	if err != nil {
		t.Fatalf("create purchaser: %v", err)
	}
	file, err = h.fileRepo.Create(ctx, nil, &domain.File{
		OwnerID:    owner.ID,
		Title:      "Advanced Guide",
		Type:       domain.FileTypePDF,
		StorageKey: "k1",
		Checksum:   strings.Repeat("a", 64),
		IsPremium:  true,
		PriceCents: priceCents,
		Currency:   "USD",
	})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	return owner, purchaser, file
}

func TestCreateCheckout(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	owner, purchaser, file := h.seedPurchase(t, 5000)

	session, err := h.svc.CreateCheckout(ctx, purchaser.ID, file.ID, "", "")
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if session.ID == "" || session.URL == "" {
		t.Fatalf("expected populated session, got %+v", session)
	}

	params := h.whop.lastCheckout
	if params.AmountCents != 5000 {
		t.Fatalf("expected amount 5000, got %d", params.AmountCents)
	}
	if params.Metadata["fileId"] != file.ID.String() {
		t.Fatalf("expected fileId metadata, got %v", params.Metadata)
	}
	if params.Metadata["purchaserWhopId"] != "whop_buyer" || params.Metadata["ownerWhopId"] != "whop_owner" {
		t.Fatalf("expected whop ids in metadata, got %v", params.Metadata)
	}
	if !strings.Contains(params.SuccessURL, "checkout=success&fileId="+file.ID.String()) {
		t.Fatalf("unexpected success url %q", params.SuccessURL)
	}
	_ = owner
}

func TestCreateCheckoutRejectsFreeFile(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	owner, purchaser, _ := h.seedPurchase(t, 5000)

	free, err := h.fileRepo.Create(ctx, nil, &domain.File{
		OwnerID:    owner.ID,
		Title:      "Free Notes",
		Type:       domain.FileTypeText,
		StorageKey: "k2",
		Checksum:   strings.Repeat("b", 64),
	})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	_, err = h.svc.CreateCheckout(ctx, purchaser.ID, free.ID, "", "")
	ae := apierr.From(err)
	if ae == nil || ae.Code != "file_not_premium" {
		t.Fatalf("expected file_not_premium, got %v", err)
	}
}

func TestHandleWebhookSettlesPurchase(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	owner, purchaser, file := h.seedPurchase(t, 10000)

	err := h.svc.HandleWebhook(ctx, WebhookEvent{
		Type: "payment.succeeded",
		Data: WebhookEventData{
			ID:          "pay_1",
			AmountCents: 10000,
			Currency:    "usd",
			Metadata: map[string]string{
				"fileId":      file.ID.String(),
				"purchaserId": purchaser.ID.String(),
			},
		},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	updated, err := h.fileRepo.GetByID(ctx, nil, file.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if updated.TotalPurchases != 1 {
		t.Fatalf("expected total_purchases 1, got %d", updated.TotalPurchases)
	}

	transactions, err := h.txRepo.ListByCreator(ctx, nil, owner.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected one transaction, got %d", len(transactions))
	}
	tr := transactions[0]
	if tr.CreatorShareCents != 8900 || tr.CommunityShareCents != 1000 || tr.PlatformShareCents != 100 {
		t.Fatalf("unexpected split %d/%d/%d", tr.CreatorShareCents, tr.CommunityShareCents, tr.PlatformShareCents)
	}
	if tr.ExternalReference != "pay_1" || tr.Currency != "USD" {
		t.Fatalf("unexpected transaction %+v", tr)
	}

	creator, err := h.userRepo.GetByID(ctx, nil, owner.ID)
	if err != nil {
		t.Fatalf("get owner: %v", err)
	}
	if creator.EarningsCents != 8900 {
		t.Fatalf("expected earnings 8900, got %d", creator.EarningsCents)
	}

	if len(h.notifier.sent) != 1 {
		t.Fatalf("expected one purchase notification, got %d", len(h.notifier.sent))
	}
	sent := h.notifier.sent[0]
	if sent.userID != owner.ID || sent.kind != domain.NotificationPurchase || sent.email == nil {
		t.Fatalf("unexpected notification %+v", sent)
	}
}

func TestHandleWebhookFallsBackToFilePrice(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	owner, purchaser, file := h.seedPurchase(t, 2500)

	err := h.svc.HandleWebhook(ctx, WebhookEvent{
		Type: "payment.succeeded",
		Data: WebhookEventData{
			ID: "pay_2",
			Metadata: map[string]string{
				"fileId":      file.ID.String(),
				"purchaserId": purchaser.ID.String(),
			},
		},
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	transactions, err := h.txRepo.ListByCreator(ctx, nil, owner.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 1 || transactions[0].AmountCents != 2500 {
		t.Fatalf("expected settlement at file price 2500, got %+v", transactions)
	}
}

func TestHandleWebhookSkipsWithoutMetadata(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	owner, _, _ := h.seedPurchase(t, 5000)

	err := h.svc.HandleWebhook(ctx, WebhookEvent{
		Type: "payment.succeeded",
		Data: WebhookEventData{ID: "pay_3", AmountCents: 5000},
	})
	if err != nil {
		t.Fatalf("expected missing metadata to be skipped, got %v", err)
	}

	transactions, err := h.txRepo.ListByCreator(ctx, nil, owner.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 0 {
		t.Fatalf("expected no settlement, got %d", len(transactions))
	}
	if len(h.notifier.sent) != 0 {
		t.Fatalf("expected no notification, got %d", len(h.notifier.sent))
	}
}

func TestHandleWebhookSkipsUnknownPurchaser(t *testing.T) {
	h := newPaymentHarness(t)
	ctx := context.Background()
	owner, _, file := h.seedPurchase(t, 5000)

	err := h.svc.HandleWebhook(ctx, WebhookEvent{
		Type: "payment.succeeded",
		Data: WebhookEventData{
			ID:          "pay_4",
			AmountCents: 5000,
			Metadata: map[string]string{
				"fileId":      file.ID.String(),
				"purchaserId": uuid.NewString(),
			},
		},
	})
	if err != nil {
		t.Fatalf("expected unknown purchaser to be skipped, got %v", err)
	}

	updated, err := h.fileRepo.GetByID(ctx, nil, file.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if updated.TotalPurchases != 0 {
		t.Fatalf("expected total_purchases 0, got %d", updated.TotalPurchases)
	}

	transactions, err := h.txRepo.ListByCreator(ctx, nil, owner.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 0 {
		t.Fatalf("expected no settlement, got %d", len(transactions))
	}
	if len(h.notifier.sent) != 0 {
		t.Fatalf("expected no notification, got %d", len(h.notifier.sent))
	}
}

func TestHandleWebhookIgnoresUnknownEvents(t *testing.T) {
	h := newPaymentHarness(t)

	if err := h.svc.HandleWebhook(context.Background(), WebhookEvent{Type: "membership.created"}); err != nil {
		t.Fatalf("membership.created: %v", err)
	}
	if err := h.svc.HandleWebhook(context.Background(), WebhookEvent{Type: "refund.created"}); err != nil {
		t.Fatalf("unknown event: %v", err)
	}
}
