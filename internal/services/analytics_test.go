package services

import (
	"context"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/repos"
	"github.com/communityvault/backend/internal/repos/testutil"
)

type analyticsHarness struct {
	svc      AnalyticsService
	tx       *gorm.DB
	fileView repos.FileViewRepo
	txRepo   repos.TransactionRepo
}

func newAnalyticsHarness(t *testing.T) *analyticsHarness {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)

	fileView := repos.NewFileViewRepo(tx, log)
	txRepo := repos.NewTransactionRepo(tx, log)
	return &analyticsHarness{
		svc:      NewAnalyticsService(log, repos.NewFileRepo(tx, log), fileView, txRepo),
		tx:       tx,
		fileView: fileView,
		txRepo:   txRepo,
	}
}

func TestReportDerivesViewsFromLogAndRevenueFromTransactions(t *testing.T) {
	h := newAnalyticsHarness(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, h.tx, domain.RoleCreator)
	buyer := testutil.SeedUser(t, ctx, h.tx, domain.RoleViewer)
	file := testutil.SeedFile(t, ctx, h.tx, owner.ID, strings.Repeat("c", 64))

	for i := 0; i < 3; i++ {
		if _, err := h.fileView.Create(ctx, nil, &domain.FileView{FileID: file.ID, ViewerID: buyer.ID}); err != nil {
			t.Fatalf("log view: %v", err)
		}
	}
	_, err := h.txRepo.Create(ctx, nil, &domain.Transaction{
		FileID:              file.ID,
		PurchaserID:         buyer.ID,
		CreatorID:           owner.ID,
		AmountCents:         5000,
		Currency:            "USD",
		CreatorShareCents:   4450,
		CommunityShareCents: 500,
		PlatformShareCents:  50,
		ExternalReference:   "pay_report_1",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	report, err := h.svc.Report(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Totals.Files != 1 {
		t.Fatalf("Totals.Files = %d, want 1", report.Totals.Files)
	}
	if len(report.Files) != 1 {
		t.Fatalf("got %d file rollups, want 1", len(report.Files))
	}
	fa := report.Files[0]
	if fa.Views != 3 {
		t.Fatalf("Views = %d, want 3 from the view log", fa.Views)
	}
	if fa.RevenueCents != 5000 {
		t.Fatalf("RevenueCents = %d, want 5000 from transactions", fa.RevenueCents)
	}
	if report.Totals.Views != 3 || report.Totals.RevenueCents != 5000 {
		t.Fatalf("unexpected totals: %+v", report.Totals)
	}
	if len(report.RecentTransactions) != 1 || report.RecentTransactions[0].ExternalReference != "pay_report_1" {
		t.Fatalf("unexpected recent transactions: %+v", report.RecentTransactions)
	}
}

func TestReportFallsBackToCachedCounters(t *testing.T) {
	h := newAnalyticsHarness(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, h.tx, domain.RoleCreator)
	file := testutil.SeedFile(t, ctx, h.tx, owner.ID, strings.Repeat("d", 64))

	// No view log rows and no transactions; the cached counters win.
	err := h.tx.WithContext(ctx).Model(&domain.File{}).Where("id = ?", file.ID).
		Updates(map[string]any{"total_views": 7, "total_purchases": 2, "price_cents": 1500, "is_premium": true}).Error
	if err != nil {
		t.Fatalf("update counters: %v", err)
	}

	report, err := h.svc.Report(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	fa := report.Files[0]
	if fa.Views != 7 {
		t.Fatalf("Views = %d, want cached 7", fa.Views)
	}
	if fa.RevenueCents != 3000 {
		t.Fatalf("RevenueCents = %d, want 1500 * 2 purchases", fa.RevenueCents)
	}
}
