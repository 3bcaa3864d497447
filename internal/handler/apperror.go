package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrPaymentNotFound      = &AppError{http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found"}
	ErrOfferNotFound        = &AppError{http.StatusNotFound, "OFFER_NOT_FOUND", "Offer not found"}
	ErrPaymentAlreadyExists = &AppError{http.StatusConflict, "PAYMENT_ALREADY_EXISTS", "A payment already exists for this offer"}
	ErrOfferNotDelivered    = &AppError{http.StatusUnprocessableEntity, "OFFER_NOT_DELIVERED", "Offer has not been delivered"}
	ErrInvalidState         = &AppError{http.StatusUnprocessableEntity, "INVALID_STATE", "Payment is not in a valid state for this operation"}
	ErrNotRetryable         = &AppError{http.StatusUnprocessableEntity, "NOT_RETRYABLE", "Payment cannot be retried"}
	ErrNotRefundable        = &AppError{http.StatusUnprocessableEntity, "NOT_REFUNDABLE", "Only completed payments can be refunded"}
	ErrRefundExceedsTotal   = &AppError{http.StatusUnprocessableEntity, "REFUND_EXCEEDS_TOTAL", "Refund amount exceeds the payment total"}
	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidCurrency      = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrGatewayError         = &AppError{http.StatusBadGateway, "GATEWAY_ERROR", "Payment gateway rejected the request"}
)
