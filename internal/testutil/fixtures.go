package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
)

// SeedDeliveredOffer inserts an offer in the delivered state, ready for
// settlement. Accepted two hours ago, delivered one hour ago.
func SeedDeliveredOffer(t *testing.T, db *sql.DB, businessID, riderID uuid.UUID) *domain.Offer {
	t.Helper()

	now := time.Now().UTC()
	accepted := now.Add(-2 * time.Hour)
	delivered := now.Add(-1 * time.Hour)

	o := &domain.Offer{
		ID:              uuid.New(),
		BusinessID:      businessID,
		RiderID:         &riderID,
		BusinessName:    "Testaurant",
		PickupAddress:   "1 Pickup Lane",
		DeliveryAddress: "2 Dropoff Road",
		Status:          domain.OfferStatusDelivered,
		AcceptedAt:      &accepted,
		DeliveredAt:     &delivered,
		CreatedAt:       accepted,
	}
	insertOffer(t, db, o)
	return o
}

// SeedOfferWithStatus inserts an offer in an arbitrary state. Accepted and
// delivered timestamps are set only where the status implies them.
func SeedOfferWithStatus(t *testing.T, db *sql.DB, businessID, riderID uuid.UUID, status domain.OfferStatus) *domain.Offer {
	t.Helper()

	now := time.Now().UTC()
	o := &domain.Offer{
		ID:              uuid.New(),
		BusinessID:      businessID,
		RiderID:         &riderID,
		BusinessName:    "Testaurant",
		PickupAddress:   "1 Pickup Lane",
		DeliveryAddress: "2 Dropoff Road",
		Status:          status,
		CreatedAt:       now.Add(-2 * time.Hour),
	}

	switch status {
	case domain.OfferStatusAccepted, domain.OfferStatusPickedUp:
		accepted := now.Add(-90 * time.Minute)
		o.AcceptedAt = &accepted
	case domain.OfferStatusDelivered, domain.OfferStatusCompleted:
		accepted := now.Add(-2 * time.Hour)
		delivered := now.Add(-1 * time.Hour)
		o.AcceptedAt = &accepted
		o.DeliveredAt = &delivered
	}

	insertOffer(t, db, o)
	return o
}

func insertOffer(t *testing.T, db *sql.DB, o *domain.Offer) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO offers (id, business_id, rider_id, business_name,
			pickup_address, delivery_address, status, accepted_at, delivered_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.BusinessID, o.RiderID, o.BusinessName,
		o.PickupAddress, o.DeliveryAddress, o.Status, o.AcceptedAt, o.DeliveredAt, o.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed offer %s: %v", o.ID, err)
	}
}

// SeedCompletedPayment inserts a completed payment for an already-seeded
// offer, created at the given instant. The fee split is 10% of amount.
func SeedCompletedPayment(t *testing.T, db *sql.DB, offer *domain.Offer, amount int64, createdAt time.Time) *domain.PaymentRecord {
	t.Helper()

	if offer.RiderID == nil {
		t.Fatal("seed completed payment: offer has no rider")
	}

	fee := amount / 10
	txn := "txn_" + uuid.NewString()
	processed := createdAt.Add(2 * time.Second)

	p := &domain.PaymentRecord{
		ID:            uuid.New(),
		OfferID:       offer.ID,
		BusinessID:    offer.BusinessID,
		RiderID:       *offer.RiderID,
		TotalAmount:   amount,
		PlatformFee:   fee,
		RiderEarnings: amount - fee,
		Currency:      domain.CurrencyUSD,
		Status:        domain.PaymentStatusCompleted,
		PaymentMethod: "card",
		TransactionID: &txn,
		MaxRetries:    5,
		RetryDelay:    5 * time.Minute,
		CreatedAt:     createdAt,
		ProcessedAt:   &processed,
		UpdatedAt:     processed,
	}

	_, err := db.Exec(
		`INSERT INTO payments (id, offer_id, business_id, rider_id,
			total_amount, platform_fee, rider_earnings, currency, status,
			payment_method, transaction_id, retry_count, max_retries, retry_delay_s,
			created_at, processed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, p.OfferID, p.BusinessID, p.RiderID,
		p.TotalAmount, p.PlatformFee, p.RiderEarnings, p.Currency, p.Status,
		p.PaymentMethod, p.TransactionID, p.RetryCount, p.MaxRetries, int(p.RetryDelay.Seconds()),
		p.CreatedAt, p.ProcessedAt, p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed completed payment %s: %v", p.ID, err)
	}
	return p
}

func GetPaymentStatus(t *testing.T, db *sql.DB, paymentID uuid.UUID) domain.PaymentStatus {
	t.Helper()

	var status domain.PaymentStatus
	if err := db.QueryRow(`SELECT status FROM payments WHERE id = $1`, paymentID).Scan(&status); err != nil {
		t.Fatalf("get payment status %s: %v", paymentID, err)
	}
	return status
}

func GetOfferStatus(t *testing.T, db *sql.DB, offerID uuid.UUID) domain.OfferStatus {
	t.Helper()

	var status domain.OfferStatus
	if err := db.QueryRow(`SELECT status FROM offers WHERE id = $1`, offerID).Scan(&status); err != nil {
		t.Fatalf("get offer status %s: %v", offerID, err)
	}
	return status
}

func CountPaymentEvents(t *testing.T, db *sql.DB, paymentID uuid.UUID, eventType domain.PaymentEventType) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM payment_events WHERE payment_id = $1 AND event_type = $2`,
		paymentID, eventType,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count payment events for %s: %v", paymentID, err)
	}
	return count
}
