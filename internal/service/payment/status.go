package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
)

// UpdateStatusRequest is the low-level status escape hatch used by gateway
// callbacks. Metadata is merged into the record, not replaced.
type UpdateStatusRequest struct {
	Status        domain.PaymentStatus
	TransactionID *string
	FailureReason *string
	Metadata      json.RawMessage
}

// UpdatePaymentStatus applies an externally reported outcome to a record.
// Transitions still go through the state machine; refunds are rejected here
// because they must move money through RefundPayment.
func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, req UpdateStatusRequest) (*domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	if !req.Status.IsValid() {
		return nil, fmt.Errorf("UpdatePaymentStatus: status %q: %w", req.Status, domain.ErrInvalidRequest)
	}

	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
	}

	now := time.Now().UTC()
	eventType := domain.PaymentEventType(req.Status)

	switch req.Status {
	case domain.PaymentStatusProcessing:
		// A failed record re-enters processing through the retry claim so a
		// concurrent retry cannot double-dispatch.
		if p.Status == domain.PaymentStatusFailed {
			claimed, err := s.payments.ClaimForRetry(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
			}
			if !claimed {
				return nil, fmt.Errorf("UpdatePaymentStatus: %w", domain.ErrPaymentNotRetryable)
			}
			if err := p.IncrementRetry(); err != nil {
				return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
			}
		} else if err := p.MarkProcessing(); err != nil {
			return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
		}
	case domain.PaymentStatusCompleted:
		transactionID := ""
		if req.TransactionID != nil {
			transactionID = *req.TransactionID
		} else if p.TransactionID != nil {
			transactionID = *p.TransactionID
		}
		if err := p.MarkCompleted(transactionID, now); err != nil {
			return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
		}
	case domain.PaymentStatusFailed:
		reason := "payment failed"
		if req.FailureReason != nil {
			reason = *req.FailureReason
		}
		if err := p.MarkFailed(reason, now); err != nil {
			return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
		}
	default:
		return nil, fmt.Errorf("UpdatePaymentStatus: cannot set %s directly: %w", req.Status, domain.ErrInvalidTransition)
	}

	if err := p.MergeMetadata(req.Metadata); err != nil {
		return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
	}

	if req.Status == domain.PaymentStatusCompleted {
		if err := s.finalizeCompleted(ctx, p); err != nil {
			return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
		}
	} else {
		if err := s.persist(ctx, p, eventType, req.Metadata); err != nil {
			return nil, fmt.Errorf("UpdatePaymentStatus: %w", err)
		}
	}

	log.Info("payment status updated", "payment_id", p.ID, "status", p.Status)

	switch p.Status {
	case domain.PaymentStatusCompleted:
		s.notify(ctx, successNotifications(p)...)
	case domain.PaymentStatusFailed:
		s.notify(ctx, failureNotifications(p, !p.CanRetry())...)
	}

	return p, nil
}
