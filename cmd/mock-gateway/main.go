package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/logging"
)

// The mock gateway approves every charge unless the payment method details
// ask for a failure, which makes retry scenarios reproducible:
//
//	{"simulate_failure": true, "failure_message": "card declined"}

type chargeRequest struct {
	PaymentID     string          `json:"payment_id"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Method        string          `json:"method"`
	MethodDetails json.RawMessage `json:"method_details"`
}

type methodDetails struct {
	SimulateFailure bool   `json:"simulate_failure"`
	FailureMessage  string `json:"failure_message"`
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Reason        string `json:"reason"`
}

func main() {
	logging.Init("mock-gateway", "info", os.Getenv("APP_ENV"))

	addr := ":8081"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /charges", handleCharge)
	mux.HandleFunc("POST /refunds", handleRefund)

	slog.Info("mock gateway started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid body"})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"status": "error", "message": "amount must be positive"})
		return
	}

	var details methodDetails
	if len(req.MethodDetails) > 0 {
		_ = json.Unmarshal(req.MethodDetails, &details)
	}

	if details.SimulateFailure {
		msg := details.FailureMessage
		if msg == "" {
			msg = "card declined"
		}
		slog.Info("charge declined", "payment_id", req.PaymentID, "message", msg)
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"status":  "declined",
			"message": msg,
		})
		return
	}

	slog.Info("charge approved", "payment_id", req.PaymentID, "amount", req.Amount, "currency", req.Currency)
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction_id": "txn_" + uuid.NewString(),
		"status":         "succeeded",
		"processed_at":   time.Now().UTC().Format(time.RFC3339Nano),
		"fees":           0,
	})
}

func handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid body"})
		return
	}
	if req.TransactionID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"status": "error", "message": "transaction_id required"})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"status": "error", "message": "amount must be positive"})
		return
	}

	slog.Info("refund approved", "transaction_id", req.TransactionID, "amount", req.Amount)
	writeJSON(w, http.StatusOK, map[string]any{
		"refund_id":    "re_" + uuid.NewString(),
		"status":       "succeeded",
		"processed_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
