package repos

import (
	"context"
	"testing"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/repos/testutil"
)

func TestUserRepoUpsertByWhopUserID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	first, err := repo.UpsertByWhopUserID(ctx, tx, &domain.User{
		WhopUserID: "user_upsert",
		Name:       "First",
		Email:      "first@example.com",
		Role:       domain.RoleViewer,
	})
	if err != nil {
		t.Fatalf("UpsertByWhopUserID (create): %v", err)
	}

	second, err := repo.UpsertByWhopUserID(ctx, tx, &domain.User{
		WhopUserID: "user_upsert",
		Name:       "Second",
		Role:       domain.RoleCreator,
	})
	if err != nil {
		t.Fatalf("UpsertByWhopUserID (update): %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected stable local id across upserts, got %s then %s", first.ID, second.ID)
	}
	if second.Name != "Second" {
		t.Fatalf("expected refreshed name, got %q", second.Name)
	}
	if second.Email != "first@example.com" {
		t.Fatalf("empty incoming email must not clear stored value, got %q", second.Email)
	}
	if second.Role != domain.RoleCreator {
		t.Fatalf("expected role refresh, got %s", second.Role)
	}
}

func TestUserRepoCreditEarnings(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	u := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)

	if err := repo.CreditEarnings(ctx, tx, u.ID, 8900); err != nil {
		t.Fatalf("CreditEarnings: %v", err)
	}
	if err := repo.CreditEarnings(ctx, tx, u.ID, 100); err != nil {
		t.Fatalf("CreditEarnings: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.EarningsCents != 9000 {
		t.Fatalf("expected 9000 cents, got %d", got.EarningsCents)
	}
}

func TestUserRepoListBroadcastTargets(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	viewer := testutil.SeedUser(t, ctx, tx, domain.RoleViewer)
	creator := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	admin := testutil.SeedUser(t, ctx, tx, domain.RoleAdmin)

	targets, err := repo.ListBroadcastTargets(ctx, tx, owner.ID, []domain.UserRole{domain.RoleViewer, domain.RoleCreator})
	if err != nil {
		t.Fatalf("ListBroadcastTargets: %v", err)
	}

	ids := map[string]bool{}
	for _, u := range targets {
		ids[u.ID.String()] = true
	}
	if ids[owner.ID.String()] {
		t.Fatalf("broadcast must exclude the owner")
	}
	if ids[admin.ID.String()] {
		t.Fatalf("broadcast must exclude admins")
	}
	if !ids[viewer.ID.String()] || !ids[creator.ID.String()] {
		t.Fatalf("expected viewer and creator in targets, got %v", ids)
	}
}
