package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
)

// EarningsRepository issues the read-only aggregation queries behind the
// earnings screens. All sums are over rider_earnings in minor units.
type EarningsRepository struct {
	db *sql.DB
}

func NewEarningsRepository(db *sql.DB) *EarningsRepository {
	return &EarningsRepository{db: db}
}

type LifetimeTotals struct {
	Earnings   int64
	Fees       int64
	Deliveries int
}

func (r *EarningsRepository) CompletedTotals(ctx context.Context, riderID uuid.UUID) (*LifetimeTotals, error) {
	var t LifetimeTotals
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(rider_earnings), 0),
		        COALESCE(SUM(platform_fee), 0),
		        COUNT(*)
		FROM payments WHERE rider_id = $1 AND status = $2`,
		riderID, domain.PaymentStatusCompleted,
	).Scan(&t.Earnings, &t.Fees, &t.Deliveries)
	if err != nil {
		return nil, fmt.Errorf("CompletedTotals: %w", err)
	}
	return &t, nil
}

// PendingEarnings sums earnings on records that have not resolved yet.
func (r *EarningsRepository) PendingEarnings(ctx context.Context, riderID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(rider_earnings), 0)
		FROM payments WHERE rider_id = $1 AND status IN ($2, $3)`,
		riderID, domain.PaymentStatusPending, domain.PaymentStatusProcessing,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("PendingEarnings: %w", err)
	}
	return sum, nil
}

type WindowTotals struct {
	Earnings   int64
	Deliveries int
}

// CompletedBetween aggregates completed earnings with created_at in [from, to).
// A zero `to` means no upper bound.
func (r *EarningsRepository) CompletedBetween(ctx context.Context, riderID uuid.UUID, from, to time.Time) (*WindowTotals, error) {
	query := `SELECT COALESCE(SUM(rider_earnings), 0), COUNT(*)
		FROM payments
		WHERE rider_id = $1 AND status = $2 AND created_at >= $3`
	args := []any{riderID, domain.PaymentStatusCompleted, from}
	if !to.IsZero() {
		query += ` AND created_at < $4`
		args = append(args, to)
	}

	var t WindowTotals
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&t.Earnings, &t.Deliveries); err != nil {
		return nil, fmt.Errorf("CompletedBetween: %w", err)
	}
	return &t, nil
}

func (r *EarningsRepository) RecentCompleted(ctx context.Context, riderID uuid.UUID, limit int) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE rider_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT $3`,
		riderID, domain.PaymentStatusCompleted, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("RecentCompleted: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows, "RecentCompleted")
}

type EarningsBucket struct {
	Bucket      time.Time
	Earnings    int64
	Fees        int64
	Deliveries  int
	AvgEarnings int64
}

// Breakdown groups completed payments into date_trunc buckets, most recent
// first. period must be one of day, week, month (validated by the service).
func (r *EarningsRepository) Breakdown(ctx context.Context, riderID uuid.UUID, period string, limit int) ([]EarningsBucket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date_trunc($2, created_at) AS bucket,
		        COALESCE(SUM(rider_earnings), 0),
		        COALESCE(SUM(platform_fee), 0),
		        COUNT(*),
		        COALESCE(AVG(rider_earnings), 0)::bigint
		FROM payments
		WHERE rider_id = $1 AND status = $3
		GROUP BY 1
		ORDER BY 1 DESC
		LIMIT $4`,
		riderID, period, domain.PaymentStatusCompleted, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("Breakdown: %w", err)
	}
	defer rows.Close()

	var buckets []EarningsBucket
	for rows.Next() {
		var b EarningsBucket
		if err := rows.Scan(&b.Bucket, &b.Earnings, &b.Fees, &b.Deliveries, &b.AvgEarnings); err != nil {
			return nil, fmt.Errorf("Breakdown: scan: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Breakdown: rows: %w", err)
	}
	return buckets, nil
}

// DayOfWeekCounts buckets completed payments by day of week (0=Sunday,
// matching postgres EXTRACT(DOW)).
func (r *EarningsRepository) DayOfWeekCounts(ctx context.Context, riderID uuid.UUID) ([7]int, error) {
	var counts [7]int
	rows, err := r.db.QueryContext(ctx,
		`SELECT EXTRACT(DOW FROM created_at)::int, COUNT(*)
		FROM payments
		WHERE rider_id = $1 AND status = $2
		GROUP BY 1`,
		riderID, domain.PaymentStatusCompleted,
	)
	if err != nil {
		return counts, fmt.Errorf("DayOfWeekCounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day, n int
		if err := rows.Scan(&day, &n); err != nil {
			return counts, fmt.Errorf("DayOfWeekCounts: scan: %w", err)
		}
		if day >= 0 && day < 7 {
			counts[day] = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("DayOfWeekCounts: rows: %w", err)
	}
	return counts, nil
}

func (r *EarningsRepository) HourOfDayCounts(ctx context.Context, riderID uuid.UUID) ([24]int, error) {
	var counts [24]int
	rows, err := r.db.QueryContext(ctx,
		`SELECT EXTRACT(HOUR FROM created_at)::int, COUNT(*)
		FROM payments
		WHERE rider_id = $1 AND status = $2
		GROUP BY 1`,
		riderID, domain.PaymentStatusCompleted,
	)
	if err != nil {
		return counts, fmt.Errorf("HourOfDayCounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hour, n int
		if err := rows.Scan(&hour, &n); err != nil {
			return counts, fmt.Errorf("HourOfDayCounts: scan: %w", err)
		}
		if hour >= 0 && hour < 24 {
			counts[hour] = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("HourOfDayCounts: rows: %w", err)
	}
	return counts, nil
}

type HistoryFilter struct {
	Status *domain.PaymentStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// HistoryRow is one earnings-history line: the payment plus the offer fields
// the rider sees next to it.
type HistoryRow struct {
	Payment         domain.PaymentRecord
	BusinessName    string
	PickupAddress   string
	DeliveryAddress string
}

func (f HistoryFilter) where() (string, []any, int) {
	conds := []string{"p.rider_id = $1"}
	args := []any{}
	n := 1

	if f.Status != nil {
		n++
		conds = append(conds, fmt.Sprintf("p.status = $%d", n))
		args = append(args, *f.Status)
	}
	if f.From != nil {
		n++
		conds = append(conds, fmt.Sprintf("p.created_at >= $%d", n))
		args = append(args, *f.From)
	}
	if f.To != nil {
		n++
		conds = append(conds, fmt.Sprintf("p.created_at < $%d", n))
		args = append(args, *f.To)
	}

	return strings.Join(conds, " AND "), args, n
}

func (r *EarningsRepository) HistoryPage(ctx context.Context, riderID uuid.UUID, f HistoryFilter) ([]HistoryRow, error) {
	where, extra, n := f.where()
	args := append([]any{riderID}, extra...)
	args = append(args, f.Limit, f.Offset)

	query := fmt.Sprintf(`SELECT %s,
			o.business_name, o.pickup_address, o.delivery_address
		FROM payments p
		JOIN offers o ON o.id = p.offer_id
		WHERE %s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		prefixColumns(paymentColumns, "p"), where, n+1, n+2)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("HistoryPage: %w", err)
	}
	defer rows.Close()

	var page []HistoryRow
	for rows.Next() {
		row, err := scanHistoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("HistoryPage: scan: %w", err)
		}
		page = append(page, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("HistoryPage: rows: %w", err)
	}
	return page, nil
}

func (r *EarningsRepository) HistoryCount(ctx context.Context, riderID uuid.UUID, f HistoryFilter) (int, error) {
	where, extra, _ := f.where()
	args := append([]any{riderID}, extra...)

	var count int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM payments p WHERE %s`, where),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("HistoryCount: %w", err)
	}
	return count, nil
}

func scanHistoryRow(s scanner) (*HistoryRow, error) {
	var row HistoryRow
	p := &row.Payment
	var methodDetails, metadata *[]byte
	var retryDelayS int

	err := s.Scan(
		&p.ID, &p.OfferID, &p.BusinessID, &p.RiderID,
		&p.TotalAmount, &p.PlatformFee, &p.RiderEarnings, &p.Currency, &p.Status,
		&p.PaymentMethod, &methodDetails, &p.TransactionID,
		&p.RetryCount, &p.MaxRetries, &retryDelayS, &p.FailureReason,
		&p.RefundAmount, &p.RefundReason, &p.RefundID, &metadata,
		&p.CreatedAt, &p.ProcessedAt, &p.LastAttemptAt, &p.UpdatedAt,
		&row.BusinessName, &row.PickupAddress, &row.DeliveryAddress,
	)
	if err != nil {
		return nil, err
	}

	p.RetryDelay = time.Duration(retryDelayS) * time.Second
	if methodDetails != nil {
		p.PaymentMethodDetails = *methodDetails
	}
	if metadata != nil {
		p.Metadata = *metadata
	}

	return &row, nil
}

func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
