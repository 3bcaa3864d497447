package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
)

type ProcessPaymentRequest struct {
	OfferID              uuid.UUID
	Amount               int64
	Currency             domain.Currency
	PaymentMethod        string
	PaymentMethodDetails json.RawMessage
	Metadata             json.RawMessage
}

func (r ProcessPaymentRequest) validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("validate: %w", domain.ErrInvalidAmount)
	}
	if !r.Currency.IsValid() {
		return fmt.Errorf("validate: %w", domain.ErrInvalidCurrency)
	}
	if r.PaymentMethod == "" {
		return fmt.Errorf("validate: payment method required: %w", domain.ErrInvalidRequest)
	}
	return nil
}

// ProcessPayment settles a delivered offer: splits the amount, persists a
// pending PaymentRecord (the unique offer index makes concurrent attempts
// lose deterministically), charges the gateway and finalizes the outcome.
// On gateway failure the record stays failed for a later retry and the
// gateway error is returned to the caller.
func (s *Service) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	offer, err := s.offers.GetByID(ctx, req.OfferID)
	if err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}
	if offer.Status != domain.OfferStatusDelivered {
		return nil, fmt.Errorf("ProcessPayment: offer status %s: %w", offer.Status, domain.ErrOfferNotDelivered)
	}
	if offer.RiderID == nil {
		return nil, fmt.Errorf("ProcessPayment: offer has no rider: %w", domain.ErrInvalidRequest)
	}

	if _, err := s.payments.GetByOfferID(ctx, req.OfferID); err == nil {
		return nil, fmt.Errorf("ProcessPayment: %w", domain.ErrPaymentExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	split, err := s.fees.Calculate(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	now := time.Now().UTC()
	p := &domain.PaymentRecord{
		ID:                   uuid.New(),
		OfferID:              offer.ID,
		BusinessID:           offer.BusinessID,
		RiderID:              *offer.RiderID,
		TotalAmount:          req.Amount,
		PlatformFee:          split.PlatformFee,
		RiderEarnings:        split.RiderEarnings,
		Currency:             req.Currency,
		Status:               domain.PaymentStatusPending,
		PaymentMethod:        req.PaymentMethod,
		PaymentMethodDetails: req.PaymentMethodDetails,
		MaxRetries:           s.config.MaxRetries,
		RetryDelay:           time.Duration(s.config.RetryDelayS) * time.Second,
		Metadata:             req.Metadata,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.createPending(ctx, p); err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	log.Info("payment created",
		"payment_id", p.ID,
		"offer_id", p.OfferID,
		"total_amount", p.TotalAmount,
		"platform_fee", p.PlatformFee,
		"rider_earnings", p.RiderEarnings,
		"currency", p.Currency,
	)

	if err := s.beginProcessing(ctx, p); err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	if err := s.dispatch(ctx, p); err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}
	return p, nil
}

func (s *Service) createPending(ctx context.Context, p *domain.PaymentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("createPending: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.payments.Create(ctx, tx, p); err != nil {
		return fmt.Errorf("createPending: %w", err)
	}

	event := &domain.PaymentEvent{
		ID:        uuid.New(),
		PaymentID: p.ID,
		EventType: domain.PaymentEventTypeCreated,
		Actor:     "system",
		CreatedAt: p.CreatedAt,
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("createPending: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("createPending: commit: %w", err)
	}
	return nil
}

func (s *Service) beginProcessing(ctx context.Context, p *domain.PaymentRecord) error {
	if err := p.MarkProcessing(); err != nil {
		return fmt.Errorf("beginProcessing: %w", err)
	}
	if err := s.persist(ctx, p, domain.PaymentEventTypeProcessing, nil); err != nil {
		return fmt.Errorf("beginProcessing: %w", err)
	}
	return nil
}

// dispatch runs one gateway attempt against a processing record and applies
// the outcome. Shared by the initial attempt, manual retries and the
// scheduled sweep.
func (s *Service) dispatch(ctx context.Context, p *domain.PaymentRecord) error {
	log := logging.FromContext(ctx)

	start := time.Now()
	result, err := s.gateway.ProcessPayment(ctx, GatewayChargeRequest{
		PaymentID:     p.ID,
		Amount:        p.TotalAmount,
		Currency:      p.Currency,
		Method:        p.PaymentMethod,
		MethodDetails: p.PaymentMethodDetails,
		Metadata:      p.Metadata,
	})
	if err != nil {
		return s.handleGatewayFailure(ctx, p, err)
	}

	processedAt := result.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	if err := p.MarkCompleted(result.TransactionID, processedAt); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	extra := map[string]any{"processing_ms": time.Since(start).Milliseconds()}
	if len(result.Raw) > 0 {
		extra["gateway_response"] = json.RawMessage(result.Raw)
	}
	if raw, err := json.Marshal(extra); err == nil {
		if err := p.MergeMetadata(raw); err != nil {
			log.Warn("failed to merge gateway metadata", "payment_id", p.ID, "error", err)
		}
	}

	if err := s.finalizeCompleted(ctx, p); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	log.Info("payment completed",
		"payment_id", p.ID,
		"offer_id", p.OfferID,
		"transaction_id", result.TransactionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.notify(ctx, successNotifications(p)...)
	return nil
}

// finalizeCompleted persists the completed record and flips the offer to
// completed in the same transaction.
func (s *Service) finalizeCompleted(ctx context.Context, p *domain.PaymentRecord) error {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finalizeCompleted: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.payments.Update(ctx, tx, p); err != nil {
		return fmt.Errorf("finalizeCompleted: %w", err)
	}

	if err := s.offers.MarkCompleted(ctx, tx, p.OfferID); err != nil {
		if !errors.Is(err, domain.ErrOfferNotDelivered) {
			return fmt.Errorf("finalizeCompleted: %w", err)
		}
		log.Warn("offer not in delivered state at payment completion", "offer_id", p.OfferID)
	}

	event := &domain.PaymentEvent{
		ID:        uuid.New(),
		PaymentID: p.ID,
		EventType: domain.PaymentEventTypeCompleted,
		Actor:     "system",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("finalizeCompleted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finalizeCompleted: commit: %w", err)
	}
	return nil
}

// handleGatewayFailure durably marks the record failed, then re-raises the
// gateway error so the caller decides between surfacing it and waiting for
// the scheduled retry sweep.
func (s *Service) handleGatewayFailure(ctx context.Context, p *domain.PaymentRecord, gwErr error) error {
	log := logging.FromContext(ctx)

	reason := gwErr.Error()
	var gerr *domain.GatewayError
	if errors.As(gwErr, &gerr) {
		reason = gerr.Message
	}

	if err := p.MarkFailed(reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("handleGatewayFailure: %w", err)
	}

	if gerr != nil && len(gerr.Raw) > 0 {
		if raw, err := json.Marshal(map[string]any{"gateway_response": json.RawMessage(gerr.Raw)}); err == nil {
			if err := p.MergeMetadata(raw); err != nil {
				log.Warn("failed to merge gateway metadata", "payment_id", p.ID, "error", err)
			}
		}
	}

	payload, _ := json.Marshal(map[string]string{"reason": reason})
	if err := s.persist(ctx, p, domain.PaymentEventTypeFailed, payload); err != nil {
		return fmt.Errorf("handleGatewayFailure: %w", err)
	}

	final := !p.CanRetry()
	log.Warn("payment failed",
		"payment_id", p.ID,
		"offer_id", p.OfferID,
		"reason", reason,
		"retry_count", p.RetryCount,
		"final", final,
	)

	s.notify(ctx, failureNotifications(p, final)...)
	return fmt.Errorf("handleGatewayFailure: %w", gwErr)
}

// persist saves the record and appends one audit event in a transaction.
func (s *Service) persist(ctx context.Context, p *domain.PaymentRecord, eventType domain.PaymentEventType, payload json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.payments.Update(ctx, tx, p); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	event := &domain.PaymentEvent{
		ID:        uuid.New(),
		PaymentID: p.ID,
		EventType: eventType,
		Actor:     "system",
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.events.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	return nil
}
