package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
)

const (
	analyticsTopN               = 5
	analyticsRecentTransactions = 50
)

// FileAnalytics is the rollup for one owned file. Views prefer the
// view log count and fall back to the cached counter; revenue prefers
// settled transactions and falls back to price * purchases.
type FileAnalytics struct {
	FileID       uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Views        int64     `json:"views"`
	Purchases    int64     `json:"purchases"`
	RevenueCents int64     `json:"revenue_cents"`
}

type AnalyticsTotals struct {
	RevenueCents int64 `json:"revenue_cents"`
	Views        int64 `json:"views"`
	Files        int   `json:"files"`
}

type AnalyticsReport struct {
	Totals             AnalyticsTotals       `json:"totals"`
	Files              []FileAnalytics       `json:"files"`
	TopViewed          []FileAnalytics       `json:"top_viewed"`
	TopSelling         []FileAnalytics       `json:"top_selling"`
	RecentTransactions []*domain.Transaction `json:"recent_transactions"`
}

type AnalyticsService interface {
	Report(ctx context.Context, userID uuid.UUID) (*AnalyticsReport, error)
}

type analyticsService struct {
	log             *logger.Logger
	fileRepo        repos.FileRepo
	fileViewRepo    repos.FileViewRepo
	transactionRepo repos.TransactionRepo
}

func NewAnalyticsService(log *logger.Logger, fileRepo repos.FileRepo, fileViewRepo repos.FileViewRepo, transactionRepo repos.TransactionRepo) AnalyticsService {
	return &analyticsService{
		log:             log.With("service", "AnalyticsService"),
		fileRepo:        fileRepo,
		fileViewRepo:    fileViewRepo,
		transactionRepo: transactionRepo,
	}
}

func (s *analyticsService) Report(ctx context.Context, userID uuid.UUID) (*AnalyticsReport, error) {
	files, err := s.fileRepo.ListByOwner(ctx, nil, userID, repos.FileListFilter{})
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactionRepo.ListByCreator(ctx, nil, userID, analyticsRecentTransactions)
	if err != nil {
		return nil, err
	}
	viewCounts, err := s.fileViewRepo.CountByOwnerFiles(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	revenueByFile := make(map[uuid.UUID]int64)
	for _, tx := range transactions {
		revenueByFile[tx.FileID] += tx.AmountCents
	}
	viewsByFile := make(map[uuid.UUID]int64, len(viewCounts))
	for _, vc := range viewCounts {
		viewsByFile[vc.FileID] = vc.Views
	}

	report := &AnalyticsReport{
		Files:              make([]FileAnalytics, 0, len(files)),
		RecentTransactions: transactions,
	}
	for _, f := range files {
		views, ok := viewsByFile[f.ID]
		if !ok {
			views = f.TotalViews
		}
		revenue, ok := revenueByFile[f.ID]
		if !ok {
			revenue = f.PriceCents * f.TotalPurchases
		}

		fa := FileAnalytics{
			FileID:       f.ID,
			Title:        f.Title,
			Views:        views,
			Purchases:    f.TotalPurchases,
			RevenueCents: revenue,
		}
		report.Files = append(report.Files, fa)
		report.Totals.RevenueCents += fa.RevenueCents
		report.Totals.Views += fa.Views
	}
	report.Totals.Files = len(files)

	report.TopViewed = topFiles(report.Files, func(a, b FileAnalytics) bool { return a.Views > b.Views })
	report.TopSelling = topFiles(report.Files, func(a, b FileAnalytics) bool { return a.RevenueCents > b.RevenueCents })

	return report, nil
}

func topFiles(files []FileAnalytics, more func(a, b FileAnalytics) bool) []FileAnalytics {
	out := make([]FileAnalytics, len(files))
	copy(out, files)
	sort.SliceStable(out, func(i, j int) bool { return more(out[i], out[j]) })
	if len(out) > analyticsTopN {
		out = out[:analyticsTopN]
	}
	return out
}
