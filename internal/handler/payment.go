package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/fees"
	"github.com/swiftdash/payments-service/internal/logging"
	"github.com/swiftdash/payments-service/internal/service/payment"
)

type paymentService interface {
	ProcessPayment(ctx context.Context, req payment.ProcessPaymentRequest) (*domain.PaymentRecord, error)
	RetryPayment(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentRecord, error)
	RefundPayment(ctx context.Context, paymentID uuid.UUID, amount *int64, reason string) (*domain.PaymentRecord, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentRecord, error)
	GetPaymentEvents(ctx context.Context, paymentID uuid.UUID) ([]domain.PaymentEvent, error)
	GetPaymentHistory(ctx context.Context, userID uuid.UUID, role payment.Role, req payment.HistoryRequest) (*payment.HistoryPage, error)
	GetPaymentStats(ctx context.Context, userID uuid.UUID, role payment.Role) (*payment.Stats, error)
	CalculateFees(amount int64) (fees.Split, error)
}

type PaymentHandler struct {
	payments paymentService
}

func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createPaymentRequest struct {
	OfferID              string          `json:"offer_id"`
	Amount               int64           `json:"amount"`
	Currency             string          `json:"currency"`
	PaymentMethod        string          `json:"payment_method"`
	PaymentMethodDetails json.RawMessage `json:"payment_method_details,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
}

func (r createPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if r.OfferID == "" {
		errs = append(errs, FieldError{Field: "offer_id", Message: "required"})
	} else if _, err := uuid.Parse(r.OfferID); err != nil {
		errs = append(errs, FieldError{Field: "offer_id", Message: "must be a valid UUID"})
	}

	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be USD, EUR, or GBP"})
	}

	if r.PaymentMethod == "" {
		errs = append(errs, FieldError{Field: "payment_method", Message: "required"})
	}

	return errs
}

type paymentDTO struct {
	ID                   uuid.UUID       `json:"id"`
	OfferID              uuid.UUID       `json:"offer_id"`
	BusinessID           uuid.UUID       `json:"business_id"`
	RiderID              uuid.UUID       `json:"rider_id"`
	TotalAmount          int64           `json:"total_amount"`
	PlatformFee          int64           `json:"platform_fee"`
	RiderEarnings        int64           `json:"rider_earnings"`
	Currency             string          `json:"currency"`
	Status               string          `json:"status"`
	PaymentMethod        string          `json:"payment_method"`
	PaymentMethodDetails json.RawMessage `json:"payment_method_details,omitempty"`
	TransactionID        *string         `json:"transaction_id,omitempty"`
	RetryCount           int             `json:"retry_count"`
	MaxRetries           int             `json:"max_retries"`
	FailureReason        *string         `json:"failure_reason,omitempty"`
	RefundAmount         *int64          `json:"refund_amount,omitempty"`
	RefundReason         *string         `json:"refund_reason,omitempty"`
	RefundID             *string         `json:"refund_id,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	ProcessedAt          *time.Time      `json:"processed_at,omitempty"`
	LastAttemptAt        *time.Time      `json:"last_attempt_at,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func toPaymentDTO(p *domain.PaymentRecord) paymentDTO {
	return paymentDTO{
		ID:                   p.ID,
		OfferID:              p.OfferID,
		BusinessID:           p.BusinessID,
		RiderID:              p.RiderID,
		TotalAmount:          p.TotalAmount,
		PlatformFee:          p.PlatformFee,
		RiderEarnings:        p.RiderEarnings,
		Currency:             string(p.Currency),
		Status:               string(p.Status),
		PaymentMethod:        p.PaymentMethod,
		PaymentMethodDetails: p.PaymentMethodDetails,
		TransactionID:        p.TransactionID,
		RetryCount:           p.RetryCount,
		MaxRetries:           p.MaxRetries,
		FailureReason:        p.FailureReason,
		RefundAmount:         p.RefundAmount,
		RefundReason:         p.RefundReason,
		RefundID:             p.RefundID,
		Metadata:             p.Metadata,
		CreatedAt:            p.CreatedAt,
		ProcessedAt:          p.ProcessedAt,
		LastAttemptAt:        p.LastAttemptAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toPaymentDTOs(records []domain.PaymentRecord) []paymentDTO {
	dtos := make([]paymentDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, toPaymentDTO(&records[i]))
	}
	return dtos
}

// Create settles a delivered offer. A gateway decline responds 502 with the
// processor's reason; the failed record stays persisted and can be retried.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	offerID, _ := uuid.Parse(req.OfferID)
	p, err := h.payments.ProcessPayment(r.Context(), payment.ProcessPaymentRequest{
		OfferID:              offerID,
		Amount:               req.Amount,
		Currency:             domain.Currency(req.Currency),
		PaymentMethod:        req.PaymentMethod,
		PaymentMethodDetails: req.PaymentMethodDetails,
		Metadata:             req.Metadata,
	})
	if err != nil {
		log.Warn("payment processing failed", "offer_id", req.OfferID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/payments/%s", p.ID))
	RespondSuccess(w, http.StatusCreated, toPaymentDTO(p))
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p))
}

func (h *PaymentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, err := h.payments.RetryPayment(r.Context(), paymentID)
	if err != nil {
		log.Warn("payment retry failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p))
}

type paymentEventDTO struct {
	ID        uuid.UUID       `json:"id"`
	EventType string          `json:"event_type"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Events returns the payment's audit trail, oldest first.
func (h *PaymentHandler) Events(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	events, err := h.payments.GetPaymentEvents(r.Context(), paymentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment events lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]paymentEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, paymentEventDTO{
			ID:        e.ID,
			EventType: string(e.EventType),
			Actor:     e.Actor,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"events": dtos})
}

type refundPaymentRequest struct {
	Amount *int64 `json:"amount,omitempty"`
	Reason string `json:"reason"`
}

func (r refundPaymentRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Reason == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "required"})
	}
	if r.Amount != nil && *r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

// Refund refunds a completed payment, fully when amount is omitted.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req refundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.payments.RefundPayment(r.Context(), paymentID, req.Amount, req.Reason)
	if err != nil {
		log.Warn("refund failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p))
}

// parseHistoryQuery reads the shared list parameters: user_id, role, status,
// from, to (RFC 3339), page and page_size.
func parseHistoryQuery(r *http.Request) (uuid.UUID, payment.Role, payment.HistoryRequest, []FieldError) {
	var errs []FieldError
	var req payment.HistoryRequest

	q := r.URL.Query()

	userID, err := uuid.Parse(q.Get("user_id"))
	if err != nil {
		errs = append(errs, FieldError{Field: "user_id", Message: "must be a valid UUID"})
	}

	role := payment.Role(q.Get("role"))
	if !role.IsValid() {
		errs = append(errs, FieldError{Field: "role", Message: "must be rider or business"})
	}

	if s := q.Get("status"); s != "" {
		status := domain.PaymentStatus(s)
		if !status.IsValid() {
			errs = append(errs, FieldError{Field: "status", Message: "unknown status"})
		} else {
			req.Status = &status
		}
	}

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errs = append(errs, FieldError{Field: "from", Message: "must be RFC 3339"})
		} else {
			req.From = &t
		}
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errs = append(errs, FieldError{Field: "to", Message: "must be RFC 3339"})
		} else {
			req.To = &t
		}
	}

	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	return userID, role, req, errs
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, role, req, fields := parseHistoryQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	page, err := h.payments.GetPaymentHistory(r.Context(), userID, role, req)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment history failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"payments":  toPaymentDTOs(page.Payments),
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

func (h *PaymentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := uuid.Parse(q.Get("user_id"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "user_id", Message: "must be a valid UUID"}})
		return
	}
	role := payment.Role(q.Get("role"))
	if !role.IsValid() {
		RespondValidationError(w, []FieldError{{Field: "role", Message: "must be rider or business"}})
		return
	}

	stats, err := h.payments.GetPaymentStats(r.Context(), userID, role)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment stats failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, stats)
}

type feePreviewRequest struct {
	Amount int64 `json:"amount"`
}

// PreviewFees returns the fee split for an amount without touching an offer.
func (h *PaymentHandler) PreviewFees(w http.ResponseWriter, r *http.Request) {
	var req feePreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	split, err := h.payments.CalculateFees(req.Amount)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]int64{
		"total_amount":   req.Amount,
		"platform_fee":   split.PlatformFee,
		"rider_earnings": split.RiderEarnings,
	})
}
