package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
)

// RetryPayment re-runs the gateway attempt for a retryable failed record.
// The claim is a conditional update, so two concurrent retries of the same
// record cannot both dispatch.
func (s *Service) RetryPayment(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentRecord, error) {
	log := logging.FromContext(ctx)

	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("RetryPayment: %w", err)
	}
	if !p.CanRetry() {
		return nil, fmt.Errorf("RetryPayment: status %s, retry %d/%d: %w",
			p.Status, p.RetryCount, p.MaxRetries, domain.ErrPaymentNotRetryable)
	}

	claimed, err := s.payments.ClaimForRetry(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("RetryPayment: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("RetryPayment: %w", domain.ErrPaymentNotRetryable)
	}

	// Mirror the claim on the in-memory record.
	if err := p.IncrementRetry(); err != nil {
		return nil, fmt.Errorf("RetryPayment: %w", err)
	}

	log.Info("payment retry dispatched",
		"payment_id", p.ID,
		"retry_count", p.RetryCount,
		"max_retries", p.MaxRetries,
	)

	if err := s.writeEvent(ctx, p.ID, domain.PaymentEventTypeRetried, nil); err != nil {
		log.Warn("failed to record retry event", "payment_id", p.ID, "error", err)
	}

	if err := s.dispatch(ctx, p); err != nil {
		return nil, fmt.Errorf("RetryPayment: %w", err)
	}
	return p, nil
}

// SweepResult summarises one scheduled-retry run. Per-record failures land
// in Errors; they never abort the sweep.
type SweepResult struct {
	Processed  int      `json:"processed"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// ProcessScheduledRetries retries every failed record whose retry delay has
// elapsed, sequentially to avoid a retry storm against the gateway.
func (s *Service) ProcessScheduledRetries(ctx context.Context) (*SweepResult, error) {
	log := logging.FromContext(ctx)
	now := time.Now().UTC()

	candidates, err := s.payments.ListRetryable(ctx, now, s.config.RetrySweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("ProcessScheduledRetries: %w", err)
	}

	result := &SweepResult{}
	for i := range candidates {
		p := &candidates[i]

		claimed, err := s.payments.ClaimForRetry(ctx, p.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.ID, err))
			continue
		}
		if !claimed {
			// Lost the record to a concurrent retry.
			continue
		}
		if err := p.IncrementRetry(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.ID, err))
			continue
		}

		result.Processed++
		if err := s.writeEvent(ctx, p.ID, domain.PaymentEventTypeRetried, nil); err != nil {
			log.Warn("failed to record retry event", "payment_id", p.ID, "error", err)
		}

		if err := s.dispatch(ctx, p); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.ID, err))
			continue
		}
		result.Successful++
	}

	if result.Processed > 0 {
		log.Info("scheduled retry sweep finished",
			"candidates", len(candidates),
			"processed", result.Processed,
			"successful", result.Successful,
			"failed", result.Failed,
		)
	}
	return result, nil
}
