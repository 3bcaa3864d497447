package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
)

const offerColumns = `id, business_id, rider_id, business_name,
	pickup_address, delivery_address, status, accepted_at, delivered_at, created_at`

type OfferRepository struct {
	db *sql.DB
}

func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id,
	)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrOfferNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return o, nil
}

// MarkCompleted flips a delivered offer to completed. The status guard in the
// WHERE clause makes the transition idempotent under concurrent callers.
func (r *OfferRepository) MarkCompleted(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE offers SET status = $1 WHERE id = $2 AND status = $3`,
		domain.OfferStatusCompleted, id, domain.OfferStatusDelivered,
	)
	if err != nil {
		return fmt.Errorf("MarkCompleted: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkCompleted: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkCompleted: %w", domain.ErrOfferNotDelivered)
	}
	return nil
}

// DeliveryCounts returns how many offers the rider has accepted and how many
// of those reached completed, for the completion-rate metric.
func (r *OfferRepository) DeliveryCounts(ctx context.Context, riderID uuid.UUID) (accepted, completed int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE accepted_at IS NOT NULL),
		        COUNT(*) FILTER (WHERE status = $2)
		FROM offers WHERE rider_id = $1`,
		riderID, domain.OfferStatusCompleted,
	).Scan(&accepted, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("DeliveryCounts: %w", err)
	}
	return accepted, completed, nil
}

// ActiveSeconds sums accepted-to-delivered durations over the rider's
// completed offers. Feeds the earnings-per-hour figure.
func (r *OfferRepository) ActiveSeconds(ctx context.Context, riderID uuid.UUID) (int64, error) {
	var seconds int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (delivered_at - accepted_at))), 0)::bigint
		FROM offers
		WHERE rider_id = $1 AND status = $2
		  AND accepted_at IS NOT NULL AND delivered_at IS NOT NULL`,
		riderID, domain.OfferStatusCompleted,
	).Scan(&seconds)
	if err != nil {
		return 0, fmt.Errorf("ActiveSeconds: %w", err)
	}
	return seconds, nil
}

func scanOffer(s scanner) (*domain.Offer, error) {
	var o domain.Offer
	var riderID uuid.NullUUID

	err := s.Scan(
		&o.ID, &o.BusinessID, &riderID, &o.BusinessName,
		&o.PickupAddress, &o.DeliveryAddress, &o.Status,
		&o.AcceptedAt, &o.DeliveredAt, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if riderID.Valid {
		o.RiderID = &riderID.UUID
	}

	return &o, nil
}
