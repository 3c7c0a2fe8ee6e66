package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/queue"
	"github.com/communityvault/backend/internal/repos"
	"github.com/communityvault/backend/internal/repos/testutil"
)

type notificationHarness struct {
	svc NotificationService
	tx  *gorm.DB
}

func newNotificationHarness(t *testing.T) *notificationHarness {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)

	svc := NewNotificationService(
		tx, log,
		repos.NewNotificationRepo(tx, log),
		repos.NewUserRepo(tx, log),
		repos.NewFileRepo(tx, log),
		nil,
	)
	return &notificationHarness{svc: svc, tx: tx}
}

func TestNotifyAndMarkRead(t *testing.T) {
	h := newNotificationHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, h.tx, domain.RoleViewer)

	n, err := h.svc.Notify(ctx, user.ID, domain.NotificationPurchase, map[string]any{"fileId": "abc"}, nil)
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if n.ReadAt != nil {
		t.Fatal("new notification should be unread")
	}

	listed, err := h.svc.List(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != n.ID {
		t.Fatalf("unexpected list: %+v", listed)
	}

	if err := h.svc.MarkRead(ctx, n.ID, user.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	listed, _ = h.svc.List(ctx, user.ID, 0)
	if listed[0].ReadAt == nil {
		t.Fatal("notification not marked read")
	}
}

func TestMarkReadRejectsOtherUsers(t *testing.T) {
	h := newNotificationHarness(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, h.tx, domain.RoleViewer)
	stranger := testutil.SeedUser(t, ctx, h.tx, domain.RoleViewer)

	n, err := h.svc.Notify(ctx, owner.ID, domain.NotificationPurchase, map[string]any{}, nil)
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if err := h.svc.MarkRead(ctx, n.ID, stranger.ID); err == nil {
		t.Fatal("expected error marking another user's notification")
	}
}

func TestBroadcastNewContentSkipsOwner(t *testing.T) {
	h := newNotificationHarness(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, h.tx, domain.RoleCreator)
	viewer := testutil.SeedUser(t, ctx, h.tx, domain.RoleViewer)
	creator := testutil.SeedUser(t, ctx, h.tx, domain.RoleCreator)
	file := testutil.SeedFile(t, ctx, h.tx, owner.ID, strings.Repeat("b", 64))

	err := h.svc.BroadcastNewContent(ctx, queue.JobStatus{ID: uuid.NewString(), FileID: file.ID.String()})
	if err != nil {
		t.Fatalf("BroadcastNewContent: %v", err)
	}

	for _, target := range []uuid.UUID{viewer.ID, creator.ID} {
		listed, err := h.svc.List(ctx, target, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(listed) != 1 || listed[0].Type != domain.NotificationNewContent {
			t.Fatalf("target %s: unexpected notifications %+v", target, listed)
		}
	}

	ownerListed, _ := h.svc.List(ctx, owner.ID, 0)
	if len(ownerListed) != 0 {
		t.Fatalf("owner should not be notified, got %+v", ownerListed)
	}
}

func TestBroadcastNewContentIgnoresDeletedFile(t *testing.T) {
	h := newNotificationHarness(t)
	ctx := context.Background()
	testutil.SeedUser(t, ctx, h.tx, domain.RoleViewer)

	err := h.svc.BroadcastNewContent(ctx, queue.JobStatus{ID: uuid.NewString(), FileID: uuid.NewString()})
	if err != nil {
		t.Fatalf("BroadcastNewContent: %v", err)
	}
}
