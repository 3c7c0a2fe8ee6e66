package repos

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/repos/testutil"
)

func TestNotificationRepoMarkRead(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewNotificationRepo(db, testutil.Logger(t))
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	other := testutil.SeedUser(t, ctx, tx, domain.RoleViewer)

	n, err := repo.Create(ctx, tx, &domain.Notification{
		UserID:  owner.ID,
		Type:    domain.NotificationPurchase,
		Payload: datatypes.JSON(`{"file_title":"Trading Basics","amount_cents":1000}`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Another user must not be able to mark it read.
	affected, err := repo.MarkRead(ctx, tx, n.ID, other.ID)
	if err != nil {
		t.Fatalf("MarkRead as other user: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows affected for foreign user, got %d", affected)
	}

	affected, err = repo.MarkRead(ctx, tx, n.ID, owner.ID)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	rows, err := repo.ListByUser(ctx, tx, owner.ID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rows))
	}
	if rows[0].ReadAt == nil {
		t.Fatalf("expected read_at to be set")
	}
}
