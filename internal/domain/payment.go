package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentRecord is the unit of truth for one delivery payment. Exactly one
// record exists per offer; amounts are minor units and
// PlatformFee + RiderEarnings always equals TotalAmount.
type PaymentRecord struct {
	ID                   uuid.UUID
	OfferID              uuid.UUID
	BusinessID           uuid.UUID
	RiderID              uuid.UUID
	TotalAmount          int64
	PlatformFee          int64
	RiderEarnings        int64
	Currency             Currency
	Status               PaymentStatus
	PaymentMethod        string
	PaymentMethodDetails json.RawMessage
	TransactionID        *string
	RetryCount           int
	MaxRetries           int
	RetryDelay           time.Duration
	FailureReason        *string
	RefundAmount         *int64
	RefundReason         *string
	RefundID             *string
	Metadata             json.RawMessage
	CreatedAt            time.Time
	ProcessedAt          *time.Time
	LastAttemptAt        *time.Time
	UpdatedAt            time.Time
}

func (p *PaymentRecord) canTransition(to PaymentStatus) bool {
	switch p.Status {
	case PaymentStatusPending:
		return to == PaymentStatusProcessing
	case PaymentStatusProcessing:
		return to == PaymentStatusCompleted || to == PaymentStatusFailed
	case PaymentStatusFailed:
		// Exhausted records are terminal.
		return to == PaymentStatusProcessing && p.RetryCount < p.MaxRetries
	case PaymentStatusCompleted:
		return to == PaymentStatusRefunded
	}
	return false
}

// MarkProcessing begins the first gateway attempt for a pending record.
func (p *PaymentRecord) MarkProcessing() error {
	if p.Status != PaymentStatusPending {
		return fmt.Errorf("MarkProcessing: from %s: %w", p.Status, ErrInvalidTransition)
	}
	p.Status = PaymentStatusProcessing
	return nil
}

func (p *PaymentRecord) MarkCompleted(transactionID string, processedAt time.Time) error {
	if !p.canTransition(PaymentStatusCompleted) {
		return fmt.Errorf("MarkCompleted: from %s: %w", p.Status, ErrInvalidTransition)
	}
	p.Status = PaymentStatusCompleted
	p.TransactionID = &transactionID
	p.ProcessedAt = &processedAt
	return nil
}

func (p *PaymentRecord) MarkFailed(reason string, at time.Time) error {
	if !p.canTransition(PaymentStatusFailed) {
		return fmt.Errorf("MarkFailed: from %s: %w", p.Status, ErrInvalidTransition)
	}
	p.Status = PaymentStatusFailed
	p.FailureReason = &reason
	p.LastAttemptAt = &at
	return nil
}

// IncrementRetry moves a retryable failed record back to processing and
// consumes one attempt.
func (p *PaymentRecord) IncrementRetry() error {
	if !p.CanRetry() {
		return fmt.Errorf("IncrementRetry: %w", ErrPaymentNotRetryable)
	}
	p.Status = PaymentStatusProcessing
	p.RetryCount++
	p.FailureReason = nil
	return nil
}

func (p *PaymentRecord) CanRetry() bool {
	return p.Status == PaymentStatusFailed && p.RetryCount < p.MaxRetries
}

// RetryDue reports whether enough wall-clock time has passed since the last
// attempt for the scheduled sweep to pick this record up.
func (p *PaymentRecord) RetryDue(now time.Time) bool {
	if !p.CanRetry() {
		return false
	}
	if p.LastAttemptAt == nil {
		return true
	}
	return !now.Before(p.LastAttemptAt.Add(p.RetryDelay))
}

// MarkRefunded transitions a completed record to refunded. ProcessedAt keeps
// the original completion time; the refund instant lives in the audit event.
func (p *PaymentRecord) MarkRefunded(amount int64, reason, refundID string) error {
	if !p.canTransition(PaymentStatusRefunded) {
		return fmt.Errorf("MarkRefunded: from %s: %w", p.Status, ErrNotRefundable)
	}
	if amount <= 0 {
		return fmt.Errorf("MarkRefunded: %w", ErrInvalidAmount)
	}
	if amount > p.TotalAmount {
		return fmt.Errorf("MarkRefunded: %w", ErrRefundExceedsTotal)
	}
	p.Status = PaymentStatusRefunded
	p.RefundAmount = &amount
	p.RefundReason = &reason
	p.RefundID = &refundID
	return nil
}

// IsTerminal reports whether no further transition is permitted.
func (p *PaymentRecord) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusRefunded:
		return true
	case PaymentStatusFailed:
		return p.RetryCount >= p.MaxRetries
	}
	return false
}

// MergeMetadata overlays extra keys onto the record's metadata document.
func (p *PaymentRecord) MergeMetadata(extra json.RawMessage) error {
	if len(extra) == 0 {
		return nil
	}
	merged := map[string]any{}
	if len(p.Metadata) > 0 {
		if err := json.Unmarshal(p.Metadata, &merged); err != nil {
			return fmt.Errorf("MergeMetadata: existing: %w", err)
		}
	}
	var add map[string]any
	if err := json.Unmarshal(extra, &add); err != nil {
		return fmt.Errorf("MergeMetadata: extra: %w", err)
	}
	for k, v := range add {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("MergeMetadata: %w", err)
	}
	p.Metadata = out
	return nil
}
