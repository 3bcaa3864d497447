package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
	"github.com/swiftdash/payments-service/internal/service/payment"
)

// GatewayClient talks to the external payment processor over HTTP. A
// non-2xx response or an explicit decline comes back as *domain.GatewayError
// so callers can route it through the retry path.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chargePayload struct {
	PaymentID     string          `json:"payment_id"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Method        string          `json:"method"`
	MethodDetails json.RawMessage `json:"method_details,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

type chargeResponse struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	ProcessedAt   time.Time `json:"processed_at"`
	Fees          int64     `json:"fees"`
	Message       string    `json:"message"`
}

func (c *GatewayClient) ProcessPayment(ctx context.Context, req payment.GatewayChargeRequest) (*payment.GatewayChargeResult, error) {
	payload := chargePayload{
		PaymentID:     req.PaymentID.String(),
		Amount:        req.Amount,
		Currency:      string(req.Currency),
		Method:        req.Method,
		MethodDetails: req.MethodDetails,
		Metadata:      req.Metadata,
	}

	raw, status, err := c.post(ctx, "/charges", payload, req.PaymentID.String())
	if err != nil {
		return nil, fmt.Errorf("ProcessPayment: %w", err)
	}

	var resp chargeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ProcessPayment: decode: %w", err)
	}

	if status != http.StatusOK || resp.Status != "succeeded" {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway returned status %d", status)
		}
		return nil, fmt.Errorf("ProcessPayment: %w", &domain.GatewayError{Message: msg, Raw: raw})
	}

	return &payment.GatewayChargeResult{
		TransactionID: resp.TransactionID,
		ProcessedAt:   resp.ProcessedAt.UTC(),
		Fees:          resp.Fees,
		Raw:           raw,
	}, nil
}

type refundPayload struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Reason        string `json:"reason,omitempty"`
}

type refundResponse struct {
	RefundID    string    `json:"refund_id"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
	Message     string    `json:"message"`
}

func (c *GatewayClient) ProcessRefund(ctx context.Context, req payment.GatewayRefundRequest) (*payment.GatewayRefundResult, error) {
	payload := refundPayload{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Currency:      string(req.Currency),
		Reason:        req.Reason,
	}

	raw, status, err := c.post(ctx, "/refunds", payload, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("ProcessRefund: %w", err)
	}

	var resp refundResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ProcessRefund: decode: %w", err)
	}

	if status != http.StatusOK || resp.Status != "succeeded" {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway returned status %d", status)
		}
		return nil, fmt.Errorf("ProcessRefund: %w", &domain.GatewayError{Message: msg, Raw: raw})
	}

	return &payment.GatewayRefundResult{
		RefundID:    resp.RefundID,
		ProcessedAt: resp.ProcessedAt.UTC(),
	}, nil
}

// post sends a JSON payload and returns the (bounded) response body along
// with the status code. Transport failures are returned as plain errors,
// not GatewayError, so they are distinguishable from processor declines.
func (c *GatewayClient) post(ctx context.Context, path string, payload any, ref string) ([]byte, int, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	log.Info("gateway request sent", "path", path, "ref", ref)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	log.Info("gateway response received",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return raw, resp.StatusCode, nil
}
