package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/config"
	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/fees"
	"github.com/swiftdash/payments-service/internal/repository"
)

type paymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.PaymentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRecord, error)
	GetByOfferID(ctx context.Context, offerID uuid.UUID) (*domain.PaymentRecord, error)
	Update(ctx context.Context, tx *sql.Tx, p *domain.PaymentRecord) error
	ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error)
	ListRetryable(ctx context.Context, now time.Time, limit int) ([]domain.PaymentRecord, error)
	List(ctx context.Context, f repository.PaymentFilter) ([]domain.PaymentRecord, error)
	Count(ctx context.Context, f repository.PaymentFilter) (int, error)
	StatusTotals(ctx context.Context, f repository.PaymentFilter) ([]repository.StatusTotal, error)
}

type offerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error)
	MarkCompleted(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type eventRepo interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.PaymentEvent) error
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentEvent, error)
}

// NotificationSink delivers user-facing notifications. Callers treat it as
// fire-and-forget: errors are logged, never propagated.
type NotificationSink interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Service orchestrates the payment lifecycle. It is the only writer of
// PaymentRecord status.
type Service struct {
	payments paymentRepo
	offers   offerRepo
	events   eventRepo
	gateway  PaymentGateway
	sink     NotificationSink
	fees     *fees.Calculator
	db       *sql.DB
	config   *config.Config
}

func NewService(
	payments paymentRepo,
	offers offerRepo,
	events eventRepo,
	gateway PaymentGateway,
	sink NotificationSink,
	feeCalc *fees.Calculator,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	return &Service{
		payments: payments,
		offers:   offers,
		events:   events,
		gateway:  gateway,
		sink:     sink,
		fees:     feeCalc,
		db:       db,
		config:   cfg,
	}
}

func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentRecord, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("GetPayment: %w", err)
	}
	return p, nil
}

// GetPaymentEvents returns the audit trail for one payment, oldest first.
func (s *Service) GetPaymentEvents(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentEvent, error) {
	if _, err := s.payments.GetByID(ctx, paymentID); err != nil {
		return nil, fmt.Errorf("GetPaymentEvents: %w", err)
	}
	events, err := s.events.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentEvents: %w", err)
	}
	return events, nil
}

// CalculateFees previews the platform fee / rider earnings split without
// creating a payment.
func (s *Service) CalculateFees(amount int64) (fees.Split, error) {
	split, err := s.fees.Calculate(amount)
	if err != nil {
		return fees.Split{}, fmt.Errorf("CalculateFees: %w", err)
	}
	return split, nil
}

// writeEvent appends one audit-trail event in its own transaction.
func (s *Service) writeEvent(ctx context.Context, paymentID uuid.UUID, eventType domain.PaymentEventType, payload json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("writeEvent: begin tx: %w", err)
	}
	defer tx.Rollback()

	event := &domain.PaymentEvent{
		ID:        uuid.New(),
		PaymentID: paymentID,
		EventType: eventType,
		Actor:     "system",
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("writeEvent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("writeEvent: commit: %w", err)
	}
	return nil
}
