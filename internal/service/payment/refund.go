package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
)

// RefundPayment refunds a completed payment, fully when amount is nil.
// The record transitions to refunded only after the gateway accepts the
// refund; a gateway error leaves it completed.
func (s *Service) RefundPayment(ctx context.Context, paymentID uuid.UUID, amount *int64, reason string) (*domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("RefundPayment: %w", err)
	}
	if p.Status != domain.PaymentStatusCompleted {
		return nil, fmt.Errorf("RefundPayment: status %s: %w", p.Status, domain.ErrNotRefundable)
	}

	refundAmount := p.TotalAmount
	if amount != nil {
		refundAmount = *amount
	}
	if refundAmount <= 0 {
		return nil, fmt.Errorf("RefundPayment: %w", domain.ErrInvalidAmount)
	}
	if refundAmount > p.TotalAmount {
		return nil, fmt.Errorf("RefundPayment: %w", domain.ErrRefundExceedsTotal)
	}
	if reason == "" {
		return nil, fmt.Errorf("RefundPayment: reason required: %w", domain.ErrInvalidRequest)
	}

	var transactionID string
	if p.TransactionID != nil {
		transactionID = *p.TransactionID
	}

	result, err := s.gateway.ProcessRefund(ctx, GatewayRefundRequest{
		TransactionID: transactionID,
		Amount:        refundAmount,
		Currency:      p.Currency,
		Reason:        reason,
	})
	if err != nil {
		log.Warn("gateway refund failed", "payment_id", p.ID, "error", err)
		return nil, fmt.Errorf("RefundPayment: %w", err)
	}

	if err := p.MarkRefunded(refundAmount, reason, result.RefundID); err != nil {
		return nil, fmt.Errorf("RefundPayment: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"refund_id":     result.RefundID,
		"refund_amount": refundAmount,
		"reason":        reason,
	})
	if err := s.persist(ctx, p, domain.PaymentEventTypeRefunded, payload); err != nil {
		return nil, fmt.Errorf("RefundPayment: %w", err)
	}

	log.Info("payment refunded",
		"payment_id", p.ID,
		"refund_id", result.RefundID,
		"refund_amount", refundAmount,
	)

	s.notify(ctx, refundNotifications(p)...)
	return p, nil
}
