package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/swiftdash/payments-service/internal/domain"
)

const paymentColumns = `id, offer_id, business_id, rider_id,
	total_amount, platform_fee, rider_earnings, currency, status,
	payment_method, payment_method_details, transaction_id,
	retry_count, max_retries, retry_delay_s, failure_reason,
	refund_amount, refund_reason, refund_id, metadata,
	created_at, processed_at, last_attempt_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.PaymentRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (
			id, offer_id, business_id, rider_id,
			total_amount, platform_fee, rider_earnings, currency, status,
			payment_method, payment_method_details, transaction_id,
			retry_count, max_retries, retry_delay_s, failure_reason,
			refund_amount, refund_reason, refund_id, metadata,
			created_at, processed_at, last_attempt_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24
		)`,
		p.ID, p.OfferID, p.BusinessID, p.RiderID,
		p.TotalAmount, p.PlatformFee, p.RiderEarnings, p.Currency, p.Status,
		p.PaymentMethod, nullableJSON(p.PaymentMethodDetails), p.TransactionID,
		p.RetryCount, p.MaxRetries, int(p.RetryDelay/time.Second), p.FailureReason,
		p.RefundAmount, p.RefundReason, p.RefundID, nullableJSON(p.Metadata),
		p.CreatedAt, p.ProcessedAt, p.LastAttemptAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrPaymentExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByOfferID(ctx context.Context, offerID uuid.UUID) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE offer_id = $1`, offerID,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOfferID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByOfferID: %w", err)
	}
	return p, nil
}

// Update persists every mutable field of the record. The status/refund/retry
// invariants are enforced by the domain state machine before this is called.
func (r *PaymentRepository) Update(ctx context.Context, tx *sql.Tx, p *domain.PaymentRecord) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET
			status = $1, transaction_id = $2, retry_count = $3,
			failure_reason = $4, refund_amount = $5, refund_reason = $6,
			refund_id = $7, metadata = $8, processed_at = $9,
			last_attempt_at = $10, updated_at = now()
		WHERE id = $11`,
		p.Status, p.TransactionID, p.RetryCount,
		p.FailureReason, p.RefundAmount, p.RefundReason,
		p.RefundID, nullableJSON(p.Metadata), p.ProcessedAt,
		p.LastAttemptAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	return nil
}

// ClaimForRetry atomically moves a retryable failed record to processing and
// consumes one attempt. Returns false when the record was not claimable:
// already claimed concurrently, exhausted, or not failed.
func (r *PaymentRepository) ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET
			status = $1, retry_count = retry_count + 1,
			failure_reason = NULL, updated_at = now()
		WHERE id = $2 AND status = $3 AND retry_count < max_retries`,
		domain.PaymentStatusProcessing, id, domain.PaymentStatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("ClaimForRetry: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ClaimForRetry: rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListRetryable returns failed records whose retry delay has elapsed.
func (r *PaymentRepository) ListRetryable(ctx context.Context, now time.Time, limit int) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE status = $1 AND retry_count < max_retries
		  AND (last_attempt_at IS NULL
		       OR last_attempt_at + make_interval(secs => retry_delay_s) <= $2)
		ORDER BY last_attempt_at NULLS FIRST
		LIMIT $3`,
		domain.PaymentStatusFailed, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListRetryable: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows, "ListRetryable")
}

type PaymentFilter struct {
	RiderID    *uuid.UUID
	BusinessID *uuid.UUID
	Status     *domain.PaymentStatus
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func (f PaymentFilter) where() (string, []any) {
	conds := []string{"1 = 1"}
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.RiderID != nil {
		add("rider_id = $%d", *f.RiderID)
	}
	if f.BusinessID != nil {
		add("business_id = $%d", *f.BusinessID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}

	return strings.Join(conds, " AND "), args
}

func (r *PaymentRepository) List(ctx context.Context, f PaymentFilter) ([]domain.PaymentRecord, error) {
	where, args := f.where()
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM payments WHERE %s
			ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			paymentColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows, "List")
}

func (r *PaymentRepository) Count(ctx context.Context, f PaymentFilter) (int, error) {
	where, args := f.where()

	var count int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM payments WHERE %s`, where),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

type StatusTotal struct {
	Status      domain.PaymentStatus
	Count       int
	TotalAmount int64
	PlatformFee int64
	Earnings    int64
}

// StatusTotals aggregates volume and fee figures per status for one party.
func (r *PaymentRepository) StatusTotals(ctx context.Context, f PaymentFilter) ([]StatusTotal, error) {
	where, args := f.where()

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT status, COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(platform_fee), 0),
			COALESCE(SUM(rider_earnings), 0)
		FROM payments WHERE %s GROUP BY status`, where),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("StatusTotals: %w", err)
	}
	defer rows.Close()

	var totals []StatusTotal
	for rows.Next() {
		var t StatusTotal
		if err := rows.Scan(&t.Status, &t.Count, &t.TotalAmount, &t.PlatformFee, &t.Earnings); err != nil {
			return nil, fmt.Errorf("StatusTotals: scan: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("StatusTotals: rows: %w", err)
	}
	return totals, nil
}

func collectPayments(rows *sql.Rows, op string) ([]domain.PaymentRecord, error) {
	var payments []domain.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return payments, nil
}

func scanPayment(s scanner) (*domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	var methodDetails, metadata *[]byte
	var retryDelayS int

	err := s.Scan(
		&p.ID, &p.OfferID, &p.BusinessID, &p.RiderID,
		&p.TotalAmount, &p.PlatformFee, &p.RiderEarnings, &p.Currency, &p.Status,
		&p.PaymentMethod, &methodDetails, &p.TransactionID,
		&p.RetryCount, &p.MaxRetries, &retryDelayS, &p.FailureReason,
		&p.RefundAmount, &p.RefundReason, &p.RefundID, &metadata,
		&p.CreatedAt, &p.ProcessedAt, &p.LastAttemptAt, &p.UpdatedAt,
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

	return &p, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
