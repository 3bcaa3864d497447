package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
	"github.com/swiftdash/payments-service/internal/repository"
	"github.com/swiftdash/payments-service/internal/service/earnings"
)

type earningsService interface {
	GetRiderEarningsSummary(ctx context.Context, riderID uuid.UUID) (*earnings.Summary, error)
	GetRiderEarningsHistory(ctx context.Context, riderID uuid.UUID, req earnings.HistoryRequest) (*earnings.HistoryPage, error)
	GetEarningsBreakdown(ctx context.Context, riderID uuid.UUID, period earnings.BreakdownPeriod) ([]repository.EarningsBucket, error)
	GetRiderPerformanceMetrics(ctx context.Context, riderID uuid.UUID) (*earnings.Performance, error)
}

type EarningsHandler struct {
	earnings earningsService
}

func NewEarningsHandler(svc earningsService) *EarningsHandler {
	return &EarningsHandler{earnings: svc}
}

func riderIDFromPath(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

type summaryDTO struct {
	TotalEarnings     int64                  `json:"total_earnings"`
	TotalFees         int64                  `json:"total_fees"`
	TotalDeliveries   int                    `json:"total_deliveries"`
	AverageEarnings   int64                  `json:"average_earnings"`
	PendingEarnings   int64                  `json:"pending_earnings"`
	Today             earnings.WindowSummary `json:"today"`
	ThisWeek          earnings.WindowSummary `json:"this_week"`
	ThisMonth         earnings.WindowSummary `json:"this_month"`
	ThisYear          earnings.WindowSummary `json:"this_year"`
	MonthOverMonthPct float64                `json:"month_over_month_pct"`
	RecentPayments    []paymentDTO           `json:"recent_payments"`
}

func (h *EarningsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	riderID, ok := riderIDFromPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	s, err := h.earnings.GetRiderEarningsSummary(r.Context(), riderID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("earnings summary failed", "rider_id", riderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, summaryDTO{
		TotalEarnings:     s.TotalEarnings,
		TotalFees:         s.TotalFees,
		TotalDeliveries:   s.TotalDeliveries,
		AverageEarnings:   s.AverageEarnings,
		PendingEarnings:   s.PendingEarnings,
		Today:             s.Today,
		ThisWeek:          s.ThisWeek,
		ThisMonth:         s.ThisMonth,
		ThisYear:          s.ThisYear,
		MonthOverMonthPct: s.MonthOverMonthPct,
		RecentPayments:    toPaymentDTOs(s.RecentPayments),
	})
}

type historyRowDTO struct {
	Payment         paymentDTO `json:"payment"`
	BusinessName    string     `json:"business_name"`
	PickupAddress   string     `json:"pickup_address"`
	DeliveryAddress string     `json:"delivery_address"`
}

func (h *EarningsHandler) History(w http.ResponseWriter, r *http.Request) {
	riderID, ok := riderIDFromPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var errs []FieldError
	var req earnings.HistoryRequest

	q := r.URL.Query()
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

	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	page, err := h.earnings.GetRiderEarningsHistory(r.Context(), riderID, req)
	if err != nil {
		logging.FromContext(r.Context()).Warn("earnings history failed", "rider_id", riderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	rows := make([]historyRowDTO, 0, len(page.Rows))
	for i := range page.Rows {
		row := &page.Rows[i]
		rows = append(rows, historyRowDTO{
			Payment:         toPaymentDTO(&row.Payment),
			BusinessName:    row.BusinessName,
			PickupAddress:   row.PickupAddress,
			DeliveryAddress: row.DeliveryAddress,
		})
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"rows":      rows,
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
		"summary":   page.Summary,
	})
}

type bucketDTO struct {
	PeriodStart     time.Time `json:"period_start"`
	Earnings        int64     `json:"earnings"`
	Fees            int64     `json:"fees"`
	Deliveries      int       `json:"deliveries"`
	AverageEarnings int64     `json:"average_earnings"`
}

func (h *EarningsHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	riderID, ok := riderIDFromPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	period := earnings.BreakdownPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = earnings.BreakdownDaily
	}

	buckets, err := h.earnings.GetEarningsBreakdown(r.Context(), riderID, period)
	if err != nil {
		logging.FromContext(r.Context()).Warn("earnings breakdown failed", "rider_id", riderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]bucketDTO, 0, len(buckets))
	for _, b := range buckets {
		dtos = append(dtos, bucketDTO{
			PeriodStart:     b.Bucket,
			Earnings:        b.Earnings,
			Fees:            b.Fees,
			Deliveries:      b.Deliveries,
			AverageEarnings: b.AvgEarnings,
		})
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"period":  period,
		"buckets": dtos,
	})
}

func (h *EarningsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	riderID, ok := riderIDFromPath(r)
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	perf, err := h.earnings.GetRiderPerformanceMetrics(r.Context(), riderID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("performance metrics failed", "rider_id", riderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, perf)
}
