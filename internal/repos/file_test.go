package repos

import (
	"context"
	"testing"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/repos/testutil"
)

func TestFileRepoChecksumUniquePerOwner(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewFileRepo(db, testutil.Logger(t))
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	other := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)

	first := testutil.SeedFile(t, ctx, tx, owner.ID, "c0ffee00c0ffee00")

	_, err := repo.Create(ctx, tx, &domain.File{
		OwnerID:  owner.ID,
		Title:    "duplicate upload",
		Type:     domain.FileTypePDF,
		Checksum: first.Checksum,
	})
	if err == nil {
		t.Fatalf("expected unique violation for same owner+checksum")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("expected IsUniqueViolation, got %v", err)
	}

	// Same checksum under a different owner is a separate upload.
	if _, err := repo.Create(ctx, tx, &domain.File{
		OwnerID:  other.ID,
		Title:    "same bytes, other owner",
		Type:     domain.FileTypePDF,
		Checksum: first.Checksum,
	}); err != nil {
		t.Fatalf("Create for other owner: %v", err)
	}
}

func TestFileRepoListByOwnerFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewFileRepo(db, testutil.Logger(t))
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	project := testutil.SeedProject(t, ctx, tx, owner.ID)

	inProject, err := repo.Create(ctx, tx, &domain.File{
		OwnerID:   owner.ID,
		ProjectID: testutil.PtrUUID(project.ID),
		Title:     "Trading Basics",
		Category:  "finance",
		Type:      domain.FileTypePDF,
		Checksum:  "aaaa000011112222",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, tx, &domain.File{
		OwnerID:  owner.ID,
		Title:    "Cooking Notes",
		Category: "lifestyle",
		Type:     domain.FileTypeText,
		Checksum: "bbbb000011112222",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byProject, err := repo.ListByOwner(ctx, tx, owner.ID, FileListFilter{ProjectID: testutil.PtrUUID(project.ID)})
	if err != nil {
		t.Fatalf("ListByOwner project filter: %v", err)
	}
	if len(byProject) != 1 || byProject[0].ID != inProject.ID {
		t.Fatalf("expected only the project file, got %d rows", len(byProject))
	}

	bySearch, err := repo.ListByOwner(ctx, tx, owner.ID, FileListFilter{Search: "trading"})
	if err != nil {
		t.Fatalf("ListByOwner search filter: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Title != "Trading Basics" {
		t.Fatalf("expected case-insensitive title match, got %d rows", len(bySearch))
	}

	byCategory, err := repo.ListByOwner(ctx, tx, owner.ID, FileListFilter{Category: "lifestyle"})
	if err != nil {
		t.Fatalf("ListByOwner category filter: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Title != "Cooking Notes" {
		t.Fatalf("expected category match, got %d rows", len(byCategory))
	}
}

func TestFileRepoCounters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewFileRepo(db, testutil.Logger(t))
	views := NewFileViewRepo(db, testutil.Logger(t))
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, tx, domain.RoleCreator)
	viewer := testutil.SeedUser(t, ctx, tx, domain.RoleViewer)
	f := testutil.SeedFile(t, ctx, tx, owner.ID, "cccc000011112222")

	for i := 0; i < 3; i++ {
		if _, err := views.Create(ctx, tx, &domain.FileView{FileID: f.ID, ViewerID: viewer.ID}); err != nil {
			t.Fatalf("FileView Create: %v", err)
		}
		if err := repo.IncrementViews(ctx, tx, f.ID); err != nil {
			t.Fatalf("IncrementViews: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, tx, f.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TotalViews != 3 {
		t.Fatalf("expected counter 3, got %d", got.TotalViews)
	}

	logged, err := views.CountByFile(ctx, tx, f.ID)
	if err != nil {
		t.Fatalf("CountByFile: %v", err)
	}
	if logged != got.TotalViews {
		t.Fatalf("view log (%d) and counter (%d) diverged", logged, got.TotalViews)
	}
}
