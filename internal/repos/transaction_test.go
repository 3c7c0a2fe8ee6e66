package repos

import (
	"context"
	"testing"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/repos/testutil"
)

func TestTransactionRepoHasPurchase(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewTransactionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	creator := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	buyer := testutil.SeedUser(t, ctx, tx, domain.RoleViewer)
	stranger := testutil.SeedUser(t, ctx, tx, domain.RoleViewer)
	f := testutil.SeedFile(t, ctx, tx, creator.ID, "dddd000011112222")

	if _, err := repo.Create(ctx, tx, &domain.Transaction{
		FileID:              f.ID,
		PurchaserID:         buyer.ID,
		CreatorID:           creator.ID,
		AmountCents:         1000,
		Currency:            "USD",
		CreatorShareCents:   890,
		CommunityShareCents: 100,
		PlatformShareCents:  10,
		ExternalReference:   "pay_test_1",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repo.HasPurchase(ctx, tx, f.ID, buyer.ID)
	if err != nil {
		t.Fatalf("HasPurchase: %v", err)
	}
	if !ok {
		t.Fatalf("expected buyer to have a recorded purchase")
	}

	ok, err = repo.HasPurchase(ctx, tx, f.ID, stranger.ID)
	if err != nil {
		t.Fatalf("HasPurchase: %v", err)
	}
	if ok {
		t.Fatalf("stranger must not have a recorded purchase")
	}
}

func TestTransactionRepoListByCreator(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewTransactionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	creator := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	buyer := testutil.SeedUser(t, ctx, tx, domain.RoleViewer)
	f := testutil.SeedFile(t, ctx, tx, creator.ID, "eeee000011112222")

	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, tx, &domain.Transaction{
			FileID:              f.ID,
			PurchaserID:         buyer.ID,
			CreatorID:           creator.ID,
			AmountCents:         500,
			Currency:            "USD",
			CreatorShareCents:   445,
			CommunityShareCents: 50,
			PlatformShareCents:  5,
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, err := repo.ListByCreator(ctx, tx, creator.ID, 2)
	if err != nil {
		t.Fatalf("ListByCreator: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected limit to cap rows at 2, got %d", len(rows))
	}

	rows, err = repo.ListByCreator(ctx, tx, creator.ID, 0)
	if err != nil {
		t.Fatalf("ListByCreator: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected default limit to return all 3 rows, got %d", len(rows))
	}
}
