package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/service/payment"
)

const testWebhookSecret = "test-secret-key"

type mockStatusUpdater struct {
	paymentID uuid.UUID
	req       *payment.UpdateStatusRequest
	err       error
}

func (m *mockStatusUpdater) UpdatePaymentStatus(_ context.Context, paymentID uuid.UUID, req payment.UpdateStatusRequest) (*domain.PaymentRecord, error) {
	m.paymentID = paymentID
	m.req = &req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.PaymentRecord{ID: paymentID, Status: req.Status}, nil
}

func signPayload(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func validWebhookBody() string {
	p := webhookPayload{
		PaymentID:     uuid.NewString(),
		Status:        "completed",
		TransactionID: "txn_123",
		Timestamp:     "2026-02-20T00:00:00Z",
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func TestVerifyHMAC(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature",
			body:      `{"payment_id":"abc"}`,
			signature: signPayload(`{"payment_id":"abc"}`, testWebhookSecret),
			secret:    testWebhookSecret,
			want:      true,
		},
		{
			name:      "wrong signature",
			body:      `{"payment_id":"abc"}`,
			signature: "deadbeef",
			secret:    testWebhookSecret,
			want:      false,
		},
		{
			name:      "empty signature",
			body:      `{"payment_id":"abc"}`,
			signature: "",
			secret:    testWebhookSecret,
			want:      false,
		},
		{
			name:      "wrong secret",
			body:      `{"payment_id":"abc"}`,
			signature: signPayload(`{"payment_id":"abc"}`, "other-secret"),
			secret:    testWebhookSecret,
			want:      false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := verifyHMAC([]byte(tc.body), tc.signature, tc.secret)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReceiveGatewayWebhook(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupSig   func(body string) string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid signed webhook",
			body:       validWebhookBody(),
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing signature header",
			body:       validWebhookBody(),
			setupSig:   nil,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_SIGNATURE",
		},
		{
			name:       "invalid HMAC signature",
			body:       validWebhookBody(),
			setupSig:   func(_ string) string { return "deadbeefdeadbeef" },
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_SIGNATURE",
		},
		{
			name:       "empty body",
			body:       "",
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "invalid JSON body",
			body:       "not-json",
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name: "missing required fields",
			body: func() string {
				b, _ := json.Marshal(map[string]string{"status": "completed"})
				return string(b)
			}(),
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name: "status outside completed or failed",
			body: func() string {
				b, _ := json.Marshal(map[string]string{
					"payment_id": uuid.NewString(),
					"status":     "refunded",
				})
				return string(b)
			}(),
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown payment returns 404",
			body:       validWebhookBody(),
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			serviceErr: fmt.Errorf("UpdatePaymentStatus: %w", domain.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "PAYMENT_NOT_FOUND",
		},
		{
			name:       "illegal transition returns 422",
			body:       validWebhookBody(),
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			serviceErr: fmt.Errorf("UpdatePaymentStatus: %w", domain.ErrInvalidTransition),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INVALID_STATE",
		},
		{
			name:       "service error returns 500",
			body:       validWebhookBody(),
			setupSig:   func(body string) string { return signPayload(body, testWebhookSecret) },
			serviceErr: fmt.Errorf("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockStatusUpdater{err: tc.serviceErr}
			h := NewWebhookHandler(svc, testWebhookSecret)

			req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(tc.body))
			if tc.setupSig != nil {
				req.Header.Set("X-Webhook-Signature", tc.setupSig(tc.body))
			}
			rr := httptest.NewRecorder()

			h.ReceiveGatewayWebhook(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestReceiveGatewayWebhook_MapsPayloadToRequest(t *testing.T) {
	svc := &mockStatusUpdater{}
	h := NewWebhookHandler(svc, testWebhookSecret)

	paymentID := uuid.New()
	body, _ := json.Marshal(map[string]string{
		"payment_id": paymentID.String(),
		"status":     "failed",
		"reason":     "card declined",
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(string(body)))
	req.Header.Set("X-Webhook-Signature", signPayload(string(body), testWebhookSecret))
	rr := httptest.NewRecorder()

	h.ReceiveGatewayWebhook(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.req)
	assert.Equal(t, paymentID, svc.paymentID)
	assert.Equal(t, domain.PaymentStatusFailed, svc.req.Status)
	require.NotNil(t, svc.req.FailureReason)
	assert.Equal(t, "card declined", *svc.req.FailureReason)
	assert.Nil(t, svc.req.TransactionID)
}
