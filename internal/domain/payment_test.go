package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(status PaymentStatus) *PaymentRecord {
	return &PaymentRecord{
		ID:            uuid.New(),
		OfferID:       uuid.New(),
		BusinessID:    uuid.New(),
		RiderID:       uuid.New(),
		TotalAmount:   10000,
		PlatformFee:   1000,
		RiderEarnings: 9000,
		Currency:      CurrencyUSD,
		Status:        status,
		MaxRetries:    5,
		RetryDelay:    5 * time.Minute,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestMarkProcessing(t *testing.T) {
	p := newRecord(PaymentStatusPending)
	require.NoError(t, p.MarkProcessing())
	assert.Equal(t, PaymentStatusProcessing, p.Status)

	for _, status := range []PaymentStatus{PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded} {
		p := newRecord(status)
		require.ErrorIs(t, p.MarkProcessing(), ErrInvalidTransition, "from %s", status)
	}
}

func TestMarkCompleted(t *testing.T) {
	p := newRecord(PaymentStatusProcessing)
	now := time.Now().UTC()

	require.NoError(t, p.MarkCompleted("txn_123", now))
	assert.Equal(t, PaymentStatusCompleted, p.Status)
	require.NotNil(t, p.TransactionID)
	assert.Equal(t, "txn_123", *p.TransactionID)
	require.NotNil(t, p.ProcessedAt)
	assert.Equal(t, now, *p.ProcessedAt)

	q := newRecord(PaymentStatusPending)
	require.ErrorIs(t, q.MarkCompleted("txn_456", now), ErrInvalidTransition)
}

func TestMarkFailed(t *testing.T) {
	p := newRecord(PaymentStatusProcessing)
	now := time.Now().UTC()

	require.NoError(t, p.MarkFailed("Insufficient funds", now))
	assert.Equal(t, PaymentStatusFailed, p.Status)
	require.NotNil(t, p.FailureReason)
	assert.Equal(t, "Insufficient funds", *p.FailureReason)
	require.NotNil(t, p.LastAttemptAt)
	// MarkFailed records the attempt but never consumes a retry itself.
	assert.Equal(t, 0, p.RetryCount)

	q := newRecord(PaymentStatusCompleted)
	require.ErrorIs(t, q.MarkFailed("late decline", now), ErrInvalidTransition)
}

func TestRetryLifecycle(t *testing.T) {
	p := newRecord(PaymentStatusFailed)
	assert.True(t, p.CanRetry())

	require.NoError(t, p.IncrementRetry())
	assert.Equal(t, PaymentStatusProcessing, p.Status)
	assert.Equal(t, 1, p.RetryCount)
	assert.Nil(t, p.FailureReason)
}

func TestRetryBound(t *testing.T) {
	p := newRecord(PaymentStatusFailed)
	p.RetryCount = p.MaxRetries

	assert.False(t, p.CanRetry())
	assert.True(t, p.IsTerminal())
	require.ErrorIs(t, p.IncrementRetry(), ErrPaymentNotRetryable)
}

func TestRetryDue(t *testing.T) {
	now := time.Now().UTC()

	p := newRecord(PaymentStatusFailed)
	assert.True(t, p.RetryDue(now), "no prior attempt means immediately due")

	recent := now.Add(-time.Minute)
	p.LastAttemptAt = &recent
	assert.False(t, p.RetryDue(now))

	old := now.Add(-10 * time.Minute)
	p.LastAttemptAt = &old
	assert.True(t, p.RetryDue(now))

	p.RetryCount = p.MaxRetries
	assert.False(t, p.RetryDue(now), "exhausted records are never due")
}

func TestMarkRefunded(t *testing.T) {
	p := newRecord(PaymentStatusCompleted)
	completedAt := time.Now().UTC().Add(-time.Hour)
	p.ProcessedAt = &completedAt

	require.NoError(t, p.MarkRefunded(5000, "damaged package", "re_789"))
	assert.Equal(t, PaymentStatusRefunded, p.Status)
	require.NotNil(t, p.RefundAmount)
	assert.Equal(t, int64(5000), *p.RefundAmount)
	assert.Equal(t, "damaged package", *p.RefundReason)
	assert.Equal(t, "re_789", *p.RefundID)
	assert.True(t, p.IsTerminal())

	// The refund must not disturb the completion timestamp.
	require.NotNil(t, p.ProcessedAt)
	assert.Equal(t, completedAt, *p.ProcessedAt)

	tests := []struct {
		name    string
		status  PaymentStatus
		amount  int64
		wantErr error
	}{
		{"pending record", PaymentStatusPending, 5000, ErrNotRefundable},
		{"processing record", PaymentStatusProcessing, 5000, ErrNotRefundable},
		{"failed record", PaymentStatusFailed, 5000, ErrNotRefundable},
		{"already refunded", PaymentStatusRefunded, 5000, ErrNotRefundable},
		{"zero amount", PaymentStatusCompleted, 0, ErrInvalidAmount},
		{"negative amount", PaymentStatusCompleted, -100, ErrInvalidAmount},
		{"exceeds total", PaymentStatusCompleted, 10001, ErrRefundExceedsTotal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newRecord(tc.status)
			require.ErrorIs(t, p.MarkRefunded(tc.amount, "reason", "re_1"), tc.wantErr)
		})
	}
}

func TestStateMachineClosure(t *testing.T) {
	// No transition may leave refunded or an exhausted failed record.
	now := time.Now().UTC()

	terminal := []*PaymentRecord{
		newRecord(PaymentStatusRefunded),
		func() *PaymentRecord {
			p := newRecord(PaymentStatusFailed)
			p.RetryCount = p.MaxRetries
			return p
		}(),
	}

	for _, p := range terminal {
		assert.True(t, p.IsTerminal())
		assert.Error(t, p.MarkProcessing())
		assert.Error(t, p.MarkCompleted("txn", now))
		assert.Error(t, p.MarkFailed("reason", now))
		assert.Error(t, p.IncrementRetry())
		assert.Error(t, p.MarkRefunded(100, "r", "re"))
	}
}

func TestMergeMetadata(t *testing.T) {
	p := newRecord(PaymentStatusPending)
	p.Metadata = json.RawMessage(`{"source":"api","client":"ios"}`)

	require.NoError(t, p.MergeMetadata(json.RawMessage(`{"client":"android","processing_ms":412}`)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(p.Metadata, &got))
	assert.Equal(t, "api", got["source"])
	assert.Equal(t, "android", got["client"])
	assert.Equal(t, float64(412), got["processing_ms"])

	require.NoError(t, p.MergeMetadata(nil), "empty merge is a no-op")
	require.Error(t, p.MergeMetadata(json.RawMessage(`not json`)))
}
