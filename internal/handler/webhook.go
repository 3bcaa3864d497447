package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
	"github.com/swiftdash/payments-service/internal/service/payment"
)

type statusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, req payment.UpdateStatusRequest) (*domain.PaymentRecord, error)
}

// WebhookHandler receives asynchronous outcome callbacks from the payment
// gateway. Payloads are authenticated with an HMAC-SHA256 signature over the
// raw body.
type WebhookHandler struct {
	payments statusUpdater
	secret   string
}

func NewWebhookHandler(payments statusUpdater, secret string) *WebhookHandler {
	return &WebhookHandler{payments: payments, secret: secret}
}

type webhookPayload struct {
	PaymentID     string          `json:"payment_id"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Timestamp     string          `json:"timestamp"`
}

func (p webhookPayload) validate() []FieldError {
	var errs []FieldError

	if p.PaymentID == "" {
		errs = append(errs, FieldError{Field: "payment_id", Message: "required"})
	} else if _, err := uuid.Parse(p.PaymentID); err != nil {
		errs = append(errs, FieldError{Field: "payment_id", Message: "must be a valid UUID"})
	}

	if p.Status == "" {
		errs = append(errs, FieldError{Field: "status", Message: "required"})
	} else if p.Status != "completed" && p.Status != "failed" {
		errs = append(errs, FieldError{Field: "status", Message: "must be completed or failed"})
	}

	return errs
}

var ErrInvalidSignature = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid"}

func (h *WebhookHandler) ReceiveGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	sig := r.Header.Get("X-Webhook-Signature")
	if !verifyHMAC(body, sig, h.secret) {
		log.Warn("webhook signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := payload.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	paymentID, _ := uuid.Parse(payload.PaymentID)

	req := payment.UpdateStatusRequest{
		Status:   domain.PaymentStatus(payload.Status),
		Metadata: payload.Metadata,
	}
	if payload.TransactionID != "" {
		req.TransactionID = &payload.TransactionID
	}
	if payload.Reason != "" {
		req.FailureReason = &payload.Reason
	}

	p, err := h.payments.UpdatePaymentStatus(r.Context(), paymentID, req)
	if err != nil {
		log.Warn("webhook status update failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	log.Info("webhook applied",
		"payment_id", p.ID,
		"status", p.Status,
	)

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "applied"})
}

func verifyHMAC(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
