package earnings_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/repository"
	"github.com/swiftdash/payments-service/internal/service/earnings"
	"github.com/swiftdash/payments-service/internal/testutil"
)

func setupEarningsService(t *testing.T, db *sql.DB) *earnings.Service {
	t.Helper()
	return earnings.NewService(
		repository.NewEarningsRepository(db),
		repository.NewOfferRepository(db),
	)
}

// seedCompletedDelivery seeds one completed offer plus its completed payment
// created at the given instant.
func seedCompletedDelivery(t *testing.T, db *sql.DB, businessID, riderID uuid.UUID, amount int64, createdAt time.Time) *domain.PaymentRecord {
	t.Helper()
	offer := testutil.SeedOfferWithStatus(t, db, businessID, riderID, domain.OfferStatusCompleted)
	return testutil.SeedCompletedPayment(t, db, offer, amount, createdAt)
}

func TestGetRiderEarningsSummary_Windows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupEarningsService(t, db)
	ctx := context.Background()

	riderID := uuid.New()
	businessID := uuid.New()
	now := time.Now().UTC()

	// One delivery moments ago, one 40 days back, one for another rider.
	seedCompletedDelivery(t, db, businessID, riderID, 10000, now.Add(-time.Second))
	seedCompletedDelivery(t, db, businessID, riderID, 20000, now.AddDate(0, 0, -40))
	seedCompletedDelivery(t, db, businessID, uuid.New(), 99900, now.Add(-time.Second))

	summary, err := svc.GetRiderEarningsSummary(ctx, riderID)
	require.NoError(t, err)

	// 10% fee split on both payments.
	assert.Equal(t, int64(27000), summary.TotalEarnings)
	assert.Equal(t, int64(3000), summary.TotalFees)
	assert.Equal(t, 2, summary.TotalDeliveries)
	assert.Equal(t, int64(13500), summary.AverageEarnings)
	assert.Zero(t, summary.PendingEarnings)

	assert.Equal(t, int64(9000), summary.Today.Earnings)
	assert.Equal(t, 1, summary.Today.Deliveries)
	assert.Equal(t, int64(9000), summary.ThisMonth.Earnings)
	// The 40-day-old payment may or may not fall inside the current year.
	assert.GreaterOrEqual(t, summary.ThisYear.Earnings, summary.ThisMonth.Earnings)

	require.Len(t, summary.RecentPayments, 2)
	// Newest first.
	assert.Equal(t, int64(10000), summary.RecentPayments[0].TotalAmount)
}

func TestGetEarningsBreakdown_MonthlyBuckets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupEarningsService(t, db)
	ctx := context.Background()

	riderID := uuid.New()
	businessID := uuid.New()
	now := time.Now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	seedCompletedDelivery(t, db, businessID, riderID, 10000, thisMonth.Add(26*time.Hour))
	seedCompletedDelivery(t, db, businessID, riderID, 6000, thisMonth.Add(50*time.Hour))
	seedCompletedDelivery(t, db, businessID, riderID, 20000, lastMonth.Add(12*time.Hour))

	buckets, err := svc.GetEarningsBreakdown(ctx, riderID, earnings.BreakdownMonthly)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	// Most recent bucket first.
	assert.Equal(t, thisMonth, buckets[0].Bucket.UTC())
	assert.Equal(t, int64(14400), buckets[0].Earnings)
	assert.Equal(t, int64(1600), buckets[0].Fees)
	assert.Equal(t, 2, buckets[0].Deliveries)
	assert.Equal(t, int64(7200), buckets[0].AvgEarnings)

	assert.Equal(t, lastMonth, buckets[1].Bucket.UTC())
	assert.Equal(t, int64(18000), buckets[1].Earnings)
	assert.Equal(t, 1, buckets[1].Deliveries)
}

func TestGetRiderEarningsHistory_FiltersAndJoins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupEarningsService(t, db)
	ctx := context.Background()

	riderID := uuid.New()
	businessID := uuid.New()
	now := time.Now().UTC()

	seedCompletedDelivery(t, db, businessID, riderID, 10000, now.Add(-2*time.Hour))
	seedCompletedDelivery(t, db, businessID, riderID, 5000, now.Add(-1*time.Hour))

	completed := domain.PaymentStatusCompleted
	page, err := svc.GetRiderEarningsHistory(ctx, riderID, earnings.HistoryRequest{
		Status:   &completed,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)

	require.Len(t, page.Rows, 2)
	assert.Equal(t, 2, page.Total)
	// Newest first, offer fields joined in.
	assert.Equal(t, int64(5000), page.Rows[0].Payment.TotalAmount)
	assert.Equal(t, "Testaurant", page.Rows[0].BusinessName)
	assert.NotEmpty(t, page.Rows[0].PickupAddress)

	assert.Equal(t, int64(13500), page.Summary.TotalEarnings)
	assert.Equal(t, 2, page.Summary.TotalDeliveries)
	assert.Equal(t, int64(6750), page.Summary.AverageEarnings)
}

func TestGetRiderPerformanceMetrics_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupEarningsService(t, db)
	ctx := context.Background()

	riderID := uuid.New()
	businessID := uuid.New()
	now := time.Now().UTC()

	// Two completed deliveries (one active hour each) and one accepted but
	// never finished.
	seedCompletedDelivery(t, db, businessID, riderID, 10000, now.Add(-time.Hour))
	seedCompletedDelivery(t, db, businessID, riderID, 10000, now.Add(-2*time.Hour))
	testutil.SeedOfferWithStatus(t, db, businessID, riderID, domain.OfferStatusAccepted)

	perf, err := svc.GetRiderPerformanceMetrics(ctx, riderID)
	require.NoError(t, err)

	assert.Equal(t, 2, perf.TotalDeliveries)
	assert.Equal(t, 3, perf.AcceptedDeliveries)
	assert.InDelta(t, 66.67, perf.CompletionRatePct, 0.01)
	assert.Equal(t, int64(9000), perf.EarningsPerDelivery)
	assert.InDelta(t, 2.0, perf.ActiveHours, 0.01)
	assert.InDelta(t, 9000.0, perf.EarningsPerHour, 1.0)

	var total int
	for _, n := range perf.ByDayOfWeek {
		total += n
	}
	assert.Equal(t, 2, total)
}
