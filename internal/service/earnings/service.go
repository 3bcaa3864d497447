// Package earnings computes rider-facing earnings analytics: lifetime and
// windowed summaries, period breakdowns, a joined delivery history and
// performance metrics. All monetary figures are minor units; averages and
// rates are the only floating-point values.
package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/repository"
)

type earningsRepo interface {
	CompletedTotals(ctx context.Context, riderID uuid.UUID) (*repository.LifetimeTotals, error)
	PendingEarnings(ctx context.Context, riderID uuid.UUID) (int64, error)
	CompletedBetween(ctx context.Context, riderID uuid.UUID, from, to time.Time) (*repository.WindowTotals, error)
	RecentCompleted(ctx context.Context, riderID uuid.UUID, limit int) ([]domain.PaymentRecord, error)
	Breakdown(ctx context.Context, riderID uuid.UUID, period string, limit int) ([]repository.EarningsBucket, error)
	DayOfWeekCounts(ctx context.Context, riderID uuid.UUID) ([7]int, error)
	HourOfDayCounts(ctx context.Context, riderID uuid.UUID) ([24]int, error)
	HistoryPage(ctx context.Context, riderID uuid.UUID, f repository.HistoryFilter) ([]repository.HistoryRow, error)
	HistoryCount(ctx context.Context, riderID uuid.UUID, f repository.HistoryFilter) (int, error)
}

type offerRepo interface {
	DeliveryCounts(ctx context.Context, riderID uuid.UUID) (accepted, completed int, err error)
	ActiveSeconds(ctx context.Context, riderID uuid.UUID) (int64, error)
}

type Service struct {
	earnings earningsRepo
	offers   offerRepo
	now      func() time.Time
}

func NewService(earnings earningsRepo, offers offerRepo) *Service {
	return &Service{
		earnings: earnings,
		offers:   offers,
		now:      time.Now,
	}
}

const recentPaymentsLimit = 5

type WindowSummary struct {
	Earnings   int64 `json:"earnings"`
	Deliveries int   `json:"deliveries"`
}

type Summary struct {
	TotalEarnings     int64                  `json:"total_earnings"`
	TotalFees         int64                  `json:"total_fees"`
	TotalDeliveries   int                    `json:"total_deliveries"`
	AverageEarnings   int64                  `json:"average_earnings"`
	PendingEarnings   int64                  `json:"pending_earnings"`
	Today             WindowSummary          `json:"today"`
	ThisWeek          WindowSummary          `json:"this_week"`
	ThisMonth         WindowSummary          `json:"this_month"`
	ThisYear          WindowSummary          `json:"this_year"`
	MonthOverMonthPct float64                `json:"month_over_month_pct"`
	RecentPayments    []domain.PaymentRecord `json:"recent_payments"`
}

// GetRiderEarningsSummary builds the earnings dashboard: lifetime totals,
// pending balance, calendar windows anchored at the current UTC instant,
// the month-over-month trend and the latest completed payments.
func (s *Service) GetRiderEarningsSummary(ctx context.Context, riderID uuid.UUID) (*Summary, error) {
	now := s.now().UTC()

	totals, err := s.earnings.CompletedTotals(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("GetRiderEarningsSummary: %w", err)
	}
	pending, err := s.earnings.PendingEarnings(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("GetRiderEarningsSummary: %w", err)
	}

	windows := []struct {
		from time.Time
		dest *WindowSummary
	}{
		{startOfDay(now), nil},
		{startOfWeek(now), nil},
		{startOfMonth(now), nil},
		{startOfYear(now), nil},
	}

	summary := &Summary{
		TotalEarnings:   totals.Earnings,
		TotalFees:       totals.Fees,
		TotalDeliveries: totals.Deliveries,
		PendingEarnings: pending,
	}
	if totals.Deliveries > 0 {
		summary.AverageEarnings = totals.Earnings / int64(totals.Deliveries)
	}

	windows[0].dest = &summary.Today
	windows[1].dest = &summary.ThisWeek
	windows[2].dest = &summary.ThisMonth
	windows[3].dest = &summary.ThisYear

	for _, w := range windows {
		t, err := s.earnings.CompletedBetween(ctx, riderID, w.from, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("GetRiderEarningsSummary: %w", err)
		}
		w.dest.Earnings = t.Earnings
		w.dest.Deliveries = t.Deliveries
	}

	previous, err := s.earnings.CompletedBetween(ctx, riderID, startOfPreviousMonth(now), startOfMonth(now))
	if err != nil {
		return nil, fmt.Errorf("GetRiderEarningsSummary: %w", err)
	}
	if previous.Earnings > 0 {
		delta := summary.ThisMonth.Earnings - previous.Earnings
		summary.MonthOverMonthPct = float64(delta) / float64(previous.Earnings) * 100
	}

	recent, err := s.earnings.RecentCompleted(ctx, riderID, recentPaymentsLimit)
	if err != nil {
		return nil, fmt.Errorf("GetRiderEarningsSummary: %w", err)
	}
	summary.RecentPayments = recent

	return summary, nil
}

type HistoryRequest struct {
	Status   *domain.PaymentStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (r *HistoryRequest) normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
}

// PageSummary aggregates the rows on the returned page, not the whole
// result set. Only completed rows count toward earnings.
type PageSummary struct {
	TotalEarnings   int64 `json:"total_earnings"`
	TotalDeliveries int   `json:"total_deliveries"`
	AverageEarnings int64 `json:"average_earnings"`
}

type HistoryPage struct {
	Rows     []repository.HistoryRow `json:"rows"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
	Summary  PageSummary             `json:"summary"`
}

// GetRiderEarningsHistory pages through the rider's payments joined with
// their delivery details, newest first.
func (s *Service) GetRiderEarningsHistory(ctx context.Context, riderID uuid.UUID, req HistoryRequest) (*HistoryPage, error) {
	req.normalize()

	f := repository.HistoryFilter{
		Status: req.Status,
		From:   req.From,
		To:     req.To,
		Limit:  req.PageSize,
		Offset: (req.Page - 1) * req.PageSize,
	}

	rows, err := s.earnings.HistoryPage(ctx, riderID, f)
	if err != nil {
		return nil, fmt.Errorf("GetRiderEarningsHistory: %w", err)
	}
	total, err := s.earnings.HistoryCount(ctx, riderID, f)
	if err != nil {
		return nil, fmt.Errorf("GetRiderEarningsHistory: %w", err)
	}

	page := &HistoryPage{
		Rows:     rows,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	for _, row := range rows {
		if row.Payment.Status != domain.PaymentStatusCompleted {
			continue
		}
		page.Summary.TotalEarnings += row.Payment.RiderEarnings
		page.Summary.TotalDeliveries++
	}
	if page.Summary.TotalDeliveries > 0 {
		page.Summary.AverageEarnings = page.Summary.TotalEarnings / int64(page.Summary.TotalDeliveries)
	}

	return page, nil
}

type BreakdownPeriod string

const (
	BreakdownDaily   BreakdownPeriod = "daily"
	BreakdownWeekly  BreakdownPeriod = "weekly"
	BreakdownMonthly BreakdownPeriod = "monthly"
)

// trunc maps an API period onto the date_trunc field and the number of
// buckets the endpoint returns.
func (p BreakdownPeriod) trunc() (field string, limit int, ok bool) {
	switch p {
	case BreakdownDaily:
		return "day", 30, true
	case BreakdownWeekly:
		return "week", 12, true
	case BreakdownMonthly:
		return "month", 12, true
	default:
		return "", 0, false
	}
}

// GetEarningsBreakdown buckets completed earnings by calendar period, most
// recent bucket first. Periods with no completed payments are absent.
func (s *Service) GetEarningsBreakdown(ctx context.Context, riderID uuid.UUID, period BreakdownPeriod) ([]repository.EarningsBucket, error) {
	field, limit, ok := period.trunc()
	if !ok {
		return nil, fmt.Errorf("GetEarningsBreakdown: period %q: %w", period, domain.ErrInvalidRequest)
	}

	buckets, err := s.earnings.Breakdown(ctx, riderID, field, limit)
	if err != nil {
		return nil, fmt.Errorf("GetEarningsBreakdown: %w", err)
	}
	return buckets, nil
}

type Performance struct {
	TotalDeliveries     int     `json:"total_deliveries"`
	AcceptedDeliveries  int     `json:"accepted_deliveries"`
	CompletionRatePct   float64 `json:"completion_rate_pct"`
	EarningsPerDelivery int64   `json:"earnings_per_delivery"`
	EarningsPerHour     float64 `json:"earnings_per_hour"`
	ActiveHours         float64 `json:"active_hours"`
	ByDayOfWeek         [7]int  `json:"by_day_of_week"`
	ByHourOfDay         [24]int `json:"by_hour_of_day"`
}

// GetRiderPerformanceMetrics derives rate metrics from offers and payments.
// Every ratio is guarded against a zero denominator and reports zero instead.
func (s *Service) GetRiderPerformanceMetrics(ctx context.Context, riderID uuid.UUID) (*Performance, error) {
	accepted, completed, err := s.offers.DeliveryCounts(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("GetRiderPerformanceMetrics: %w", err)
	}

	totals, err := s.earnings.CompletedTotals(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("GetRiderPerformanceMetrics: %w", err)
	}

	activeSeconds, err := s.offers.ActiveSeconds(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("GetRiderPerformanceMetrics: %w", err)
	}

	byDay, err := s.earnings.DayOfWeekCounts(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("GetRiderPerformanceMetrics: %w", err)
	}
	byHour, err := s.earnings.HourOfDayCounts(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("GetRiderPerformanceMetrics: %w", err)
	}

	perf := &Performance{
		TotalDeliveries:    completed,
		AcceptedDeliveries: accepted,
		ActiveHours:        float64(activeSeconds) / 3600,
		ByDayOfWeek:        byDay,
		ByHourOfDay:        byHour,
	}
	if accepted > 0 {
		perf.CompletionRatePct = float64(completed) / float64(accepted) * 100
	}
	if totals.Deliveries > 0 {
		perf.EarningsPerDelivery = totals.Earnings / int64(totals.Deliveries)
	}
	if activeSeconds > 0 {
		perf.EarningsPerHour = float64(totals.Earnings) / (float64(activeSeconds) / 3600)
	}

	return perf, nil
}
