package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
)

// PaymentGateway is the external payment processor. Implementations must
// apply a bounded timeout; declines and processor errors come back as
// *domain.GatewayError.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req GatewayChargeRequest) (*GatewayChargeResult, error)
	ProcessRefund(ctx context.Context, req GatewayRefundRequest) (*GatewayRefundResult, error)
}

type GatewayChargeRequest struct {
	PaymentID     uuid.UUID
	Amount        int64
	Currency      domain.Currency
	Method        string
	MethodDetails json.RawMessage
	Metadata      json.RawMessage
}

type GatewayChargeResult struct {
	TransactionID string
	ProcessedAt   time.Time
	Fees          int64
	Raw           json.RawMessage
}

type GatewayRefundRequest struct {
	TransactionID string
	Amount        int64
	Currency      domain.Currency
	Reason        string
}

type GatewayRefundResult struct {
	RefundID    string
	ProcessedAt time.Time
}
