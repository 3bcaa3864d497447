package earnings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/repository"
)

type stubEarningsRepo struct {
	totals   repository.LifetimeTotals
	pending  int64
	windows  map[time.Time]repository.WindowTotals
	recent   []domain.PaymentRecord
	buckets  []repository.EarningsBucket
	byDay    [7]int
	byHour   [24]int
	rows     []repository.HistoryRow
	rowCount int

	breakdownPeriod string
	breakdownLimit  int
}

func (s *stubEarningsRepo) CompletedTotals(ctx context.Context, riderID uuid.UUID) (*repository.LifetimeTotals, error) {
	t := s.totals
	return &t, nil
}

func (s *stubEarningsRepo) PendingEarnings(ctx context.Context, riderID uuid.UUID) (int64, error) {
	return s.pending, nil
}

func (s *stubEarningsRepo) CompletedBetween(ctx context.Context, riderID uuid.UUID, from, to time.Time) (*repository.WindowTotals, error) {
	t := s.windows[from]
	return &t, nil
}

func (s *stubEarningsRepo) RecentCompleted(ctx context.Context, riderID uuid.UUID, limit int) ([]domain.PaymentRecord, error) {
	return s.recent, nil
}

func (s *stubEarningsRepo) Breakdown(ctx context.Context, riderID uuid.UUID, period string, limit int) ([]repository.EarningsBucket, error) {
	s.breakdownPeriod = period
	s.breakdownLimit = limit
	return s.buckets, nil
}

func (s *stubEarningsRepo) DayOfWeekCounts(ctx context.Context, riderID uuid.UUID) ([7]int, error) {
	return s.byDay, nil
}

func (s *stubEarningsRepo) HourOfDayCounts(ctx context.Context, riderID uuid.UUID) ([24]int, error) {
	return s.byHour, nil
}

func (s *stubEarningsRepo) HistoryPage(ctx context.Context, riderID uuid.UUID, f repository.HistoryFilter) ([]repository.HistoryRow, error) {
	return s.rows, nil
}

func (s *stubEarningsRepo) HistoryCount(ctx context.Context, riderID uuid.UUID, f repository.HistoryFilter) (int, error) {
	return s.rowCount, nil
}

type stubOfferRepo struct {
	accepted      int
	completed     int
	activeSeconds int64
}

func (s *stubOfferRepo) DeliveryCounts(ctx context.Context, riderID uuid.UUID) (int, int, error) {
	return s.accepted, s.completed, nil
}

func (s *stubOfferRepo) ActiveSeconds(ctx context.Context, riderID uuid.UUID) (int64, error) {
	return s.activeSeconds, nil
}

func newTestService(e *stubEarningsRepo, o *stubOfferRepo, now time.Time) *Service {
	svc := NewService(e, o)
	svc.now = func() time.Time { return now }
	return svc
}

func TestGetRiderEarningsSummary(t *testing.T) {
	// Wednesday mid-March, so day/week/month/year windows all differ.
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	repo := &stubEarningsRepo{
		totals:  repository.LifetimeTotals{Earnings: 90000, Fees: 10000, Deliveries: 100},
		pending: 4500,
		windows: map[time.Time]repository.WindowTotals{
			startOfDay(now):           {Earnings: 900, Deliveries: 1},
			startOfWeek(now):          {Earnings: 2700, Deliveries: 3},
			startOfMonth(now):         {Earnings: 9000, Deliveries: 10},
			startOfYear(now):          {Earnings: 27000, Deliveries: 30},
			startOfPreviousMonth(now): {Earnings: 6000, Deliveries: 7},
		},
	}
	svc := newTestService(repo, &stubOfferRepo{}, now)

	summary, err := svc.GetRiderEarningsSummary(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, int64(90000), summary.TotalEarnings)
	assert.Equal(t, int64(10000), summary.TotalFees)
	assert.Equal(t, 100, summary.TotalDeliveries)
	assert.Equal(t, int64(900), summary.AverageEarnings)
	assert.Equal(t, int64(4500), summary.PendingEarnings)
	assert.Equal(t, WindowSummary{Earnings: 900, Deliveries: 1}, summary.Today)
	assert.Equal(t, WindowSummary{Earnings: 2700, Deliveries: 3}, summary.ThisWeek)
	assert.Equal(t, WindowSummary{Earnings: 9000, Deliveries: 10}, summary.ThisMonth)
	assert.Equal(t, WindowSummary{Earnings: 27000, Deliveries: 30}, summary.ThisYear)
	// 9000 vs 6000 previous month.
	assert.InDelta(t, 50.0, summary.MonthOverMonthPct, 0.001)
}

func TestSummaryZeroGuards(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	svc := newTestService(&stubEarningsRepo{}, &stubOfferRepo{}, now)

	summary, err := svc.GetRiderEarningsSummary(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Zero(t, summary.AverageEarnings)
	assert.Zero(t, summary.MonthOverMonthPct)
}

func TestGetRiderEarningsHistoryPageSummary(t *testing.T) {
	completedRow := func(earnings int64) repository.HistoryRow {
		return repository.HistoryRow{
			Payment: domain.PaymentRecord{
				Status:        domain.PaymentStatusCompleted,
				RiderEarnings: earnings,
			},
		}
	}

	repo := &stubEarningsRepo{
		rows: []repository.HistoryRow{
			completedRow(900),
			{Payment: domain.PaymentRecord{Status: domain.PaymentStatusFailed, RiderEarnings: 500}},
			completedRow(1100),
		},
		rowCount: 42,
	}
	svc := newTestService(repo, &stubOfferRepo{}, time.Now())

	page, err := svc.GetRiderEarningsHistory(context.Background(), uuid.New(), HistoryRequest{})
	require.NoError(t, err)

	assert.Equal(t, 42, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)
	// Failed row does not count toward earnings.
	assert.Equal(t, int64(2000), page.Summary.TotalEarnings)
	assert.Equal(t, 2, page.Summary.TotalDeliveries)
	assert.Equal(t, int64(1000), page.Summary.AverageEarnings)
}

func TestHistoryPageSizeClamped(t *testing.T) {
	svc := newTestService(&stubEarningsRepo{}, &stubOfferRepo{}, time.Now())

	page, err := svc.GetRiderEarningsHistory(context.Background(), uuid.New(), HistoryRequest{Page: -3, PageSize: 5000})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageSize, page.PageSize)
}

func TestGetEarningsBreakdownPeriods(t *testing.T) {
	tests := []struct {
		period BreakdownPeriod
		field  string
		limit  int
	}{
		{BreakdownDaily, "day", 30},
		{BreakdownWeekly, "week", 12},
		{BreakdownMonthly, "month", 12},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			repo := &stubEarningsRepo{}
			svc := newTestService(repo, &stubOfferRepo{}, time.Now())

			_, err := svc.GetEarningsBreakdown(context.Background(), uuid.New(), tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.field, repo.breakdownPeriod)
			assert.Equal(t, tt.limit, repo.breakdownLimit)
		})
	}
}

func TestGetEarningsBreakdownRejectsUnknownPeriod(t *testing.T) {
	svc := newTestService(&stubEarningsRepo{}, &stubOfferRepo{}, time.Now())

	_, err := svc.GetEarningsBreakdown(context.Background(), uuid.New(), "hourly")
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestGetRiderPerformanceMetrics(t *testing.T) {
	repo := &stubEarningsRepo{
		totals: repository.LifetimeTotals{Earnings: 36000, Deliveries: 40},
	}
	offers := &stubOfferRepo{accepted: 50, completed: 40, activeSeconds: 2 * 3600}
	svc := newTestService(repo, offers, time.Now())

	perf, err := svc.GetRiderPerformanceMetrics(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 40, perf.TotalDeliveries)
	assert.Equal(t, 50, perf.AcceptedDeliveries)
	assert.InDelta(t, 80.0, perf.CompletionRatePct, 0.001)
	assert.Equal(t, int64(900), perf.EarningsPerDelivery)
	assert.InDelta(t, 18000.0, perf.EarningsPerHour, 0.001)
	assert.InDelta(t, 2.0, perf.ActiveHours, 0.001)
}

func TestPerformanceMetricsZeroGuards(t *testing.T) {
	svc := newTestService(&stubEarningsRepo{}, &stubOfferRepo{}, time.Now())

	perf, err := svc.GetRiderPerformanceMetrics(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Zero(t, perf.CompletionRatePct)
	assert.Zero(t, perf.EarningsPerDelivery)
	assert.Zero(t, perf.EarningsPerHour)
}
