package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/swiftdash/payments-service/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError maps service-layer errors onto the API error table.
// Gateway declines come through as *domain.GatewayError and carry the
// processor's message in the details.
func RespondDomainError(w http.ResponseWriter, err error) {
	var gerr *domain.GatewayError
	if errors.As(err, &gerr) {
		RespondAppError(w, ErrGatewayError, map[string]string{"reason": gerr.Message})
		return
	}

	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrOfferNotFound):
		appErr = ErrOfferNotFound
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrPaymentNotFound
	case errors.Is(err, domain.ErrPaymentExists):
		appErr = ErrPaymentAlreadyExists
	case errors.Is(err, domain.ErrOfferNotDelivered):
		appErr = ErrOfferNotDelivered
	case errors.Is(err, domain.ErrPaymentNotRetryable):
		appErr = ErrNotRetryable
	case errors.Is(err, domain.ErrNotRefundable):
		appErr = ErrNotRefundable
	case errors.Is(err, domain.ErrRefundExceedsTotal):
		appErr = ErrRefundExceedsTotal
	case errors.Is(err, domain.ErrInvalidTransition):
		appErr = ErrInvalidState
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
