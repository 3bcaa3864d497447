package domain

import (
	"encoding/json"
	"errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrOfferNotFound       = errors.New("offer not found")
	ErrOfferNotDelivered   = errors.New("offer has not been delivered")
	ErrPaymentExists       = errors.New("payment already exists for offer")
	ErrInvalidTransition   = errors.New("invalid payment status transition")
	ErrPaymentNotRetryable = errors.New("payment is not retryable")
	ErrNotRefundable       = errors.New("only completed payments can be refunded")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrRefundExceedsTotal  = errors.New("refund amount exceeds payment total")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidRequest      = errors.New("invalid request")
)

// GatewayError is a decline or processing error reported by the payment
// gateway. Raw holds the gateway's response body when one was returned.
type GatewayError struct {
	Message string
	Raw     json.RawMessage
}

func (e *GatewayError) Error() string { return e.Message }
