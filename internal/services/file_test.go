package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/clients/pinecone"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/repos"
	"github.com/communityvault/backend/internal/repos/testutil"
)

type fileHarness struct {
	svc      FileService
	fileRepo repos.FileRepo
	txRepo   repos.TransactionRepo
	vectors  *fakeVectorStore
}

func newFileHarness(t *testing.T) *fileHarness {
	t.Helper()

	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)

	h := &fileHarness{
		fileRepo: repos.NewFileRepo(tx, log),
		txRepo:   repos.NewTransactionRepo(tx, log),
		vectors:  &fakeVectorStore{upserts: map[string][]pinecone.Vector{}},
	}
	h.svc = NewFileService(
		tx, log,
		h.fileRepo,
		repos.NewFileViewRepo(tx, log),
		h.txRepo,
		&fakeBucket{objects: map[string][]byte{}},
		&fakeAI{embedDim: 8},
		h.vectors,
	)
	return h
}

func (h *fileHarness) seedFile(t *testing.T, ownerID uuid.UUID, premium bool) *domain.File {
	t.Helper()
	file, err := h.fileRepo.Create(context.Background(), nil, &domain.File{
		OwnerID:    ownerID,
		Title:      "Guide",
		Type:       domain.FileTypeText,
		StorageKey: "k-" + uuid.NewString(),
		Checksum:   strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")[:64],
		IsPremium:  premium,
		PriceCents: 1000,
	})
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return file
}

func TestGetForViewerLogsViewAndGatesPremium(t *testing.T) {
	h := newFileHarness(t)
	ctx := context.Background()
	ownerID := uuid.New()
	viewerID := uuid.New()

	file := h.seedFile(t, ownerID, true)

	access, err := h.svc.GetForViewer(ctx, viewerID, file.ID)
	if err != nil {
		t.Fatalf("GetForViewer: %v", err)
	}
	if access.CanAccess || access.IsOwner {
		t.Fatalf("expected premium file gated for stranger, got %+v", access)
	}
	if access.File.TotalViews != 1 {
		t.Fatalf("expected view logged, got %d", access.File.TotalViews)
	}

	ownerAccess, err := h.svc.GetForViewer(ctx, ownerID, file.ID)
	if err != nil {
		t.Fatalf("GetForViewer as owner: %v", err)
	}
	if !ownerAccess.CanAccess || !ownerAccess.IsOwner {
		t.Fatalf("expected owner access, got %+v", ownerAccess)
	}
	if ownerAccess.File.TotalViews != 2 {
		t.Fatalf("expected second view counted, got %d", ownerAccess.File.TotalViews)
	}
}

func TestGetForViewerUnlocksAfterPurchase(t *testing.T) {
	h := newFileHarness(t)
	ctx := context.Background()
	ownerID := uuid.New()
	viewerID := uuid.New()

	file := h.seedFile(t, ownerID, true)
	if _, err := h.txRepo.Create(ctx, nil, &domain.Transaction{
		FileID:      file.ID,
		PurchaserID: viewerID,
		CreatorID:   ownerID,
		AmountCents: 1000,
		Currency:    "USD",
	}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	access, err := h.svc.GetForViewer(ctx, viewerID, file.ID)
	if err != nil {
		t.Fatalf("GetForViewer: %v", err)
	}
	if !access.CanAccess {
		t.Fatalf("expected purchased file accessible")
	}
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	h := newFileHarness(t)
	file := h.seedFile(t, uuid.New(), false)

	title := "New Title"
	_, err := h.svc.Update(context.Background(), uuid.New(), file.ID, FileUpdate{Title: &title})
	ae := apierr.From(err)
	if ae == nil || ae.Status != 403 {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateRefreshesEmbedding(t *testing.T) {
	h := newFileHarness(t)
	ctx := context.Background()
	ownerID := uuid.New()
	file := h.seedFile(t, ownerID, false)

	title := "Retitled Guide"
	updated, err := h.svc.Update(ctx, ownerID, file.ID, FileUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Retitled Guide" {
		t.Fatalf("expected title updated, got %q", updated.Title)
	}

	vecs := h.vectors.upserts[ownerID.String()]
	if len(vecs) != 1 || vecs[0].Metadata["title"] != "Retitled Guide" {
		t.Fatalf("expected embedding refreshed with new title, got %v", vecs)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	h := newFileHarness(t)
	ctx := context.Background()
	ownerID := uuid.New()
	file := h.seedFile(t, ownerID, false)

	if err := h.svc.Delete(ctx, ownerID, file.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.fileRepo.GetByID(ctx, nil, file.ID); !repos.IsNotFound(err) {
		t.Fatalf("expected file gone, got %v", err)
	}
}
