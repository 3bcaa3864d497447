package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/repository"
)

type Role string

const (
	RoleRider    Role = "rider"
	RoleBusiness Role = "business"
)

func (r Role) IsValid() bool {
	return r == RoleRider || r == RoleBusiness
}

type HistoryRequest struct {
	Status   *domain.PaymentStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type HistoryPage struct {
	Payments []domain.PaymentRecord
	Total    int
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (r *HistoryRequest) normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
}

func roleFilter(userID uuid.UUID, role Role) (repository.PaymentFilter, error) {
	var f repository.PaymentFilter
	switch role {
	case RoleRider:
		f.RiderID = &userID
	case RoleBusiness:
		f.BusinessID = &userID
	default:
		return f, fmt.Errorf("roleFilter: role %q: %w", role, domain.ErrInvalidRequest)
	}
	return f, nil
}

// GetPaymentHistory pages through one party's payments, newest first.
func (s *Service) GetPaymentHistory(ctx context.Context, userID uuid.UUID, role Role, req HistoryRequest) (*HistoryPage, error) {
	req.normalize()

	f, err := roleFilter(userID, role)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentHistory: %w", err)
	}
	f.Status = req.Status
	f.From = req.From
	f.To = req.To
	f.Limit = req.PageSize
	f.Offset = (req.Page - 1) * req.PageSize

	payments, err := s.payments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentHistory: %w", err)
	}
	total, err := s.payments.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentHistory: %w", err)
	}

	return &HistoryPage{
		Payments: payments,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

type Stats struct {
	TotalPayments int   `json:"total_payments"`
	Completed     int   `json:"completed"`
	Failed        int   `json:"failed"`
	Refunded      int   `json:"refunded"`
	InFlight      int   `json:"in_flight"`
	TotalVolume   int64 `json:"total_volume"`
	TotalFees     int64 `json:"total_fees"`
	TotalEarnings int64 `json:"total_earnings"`
}

// GetPaymentStats aggregates one party's payments by status. Volume, fee and
// earnings figures count completed payments only.
func (s *Service) GetPaymentStats(ctx context.Context, userID uuid.UUID, role Role) (*Stats, error) {
	f, err := roleFilter(userID, role)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentStats: %w", err)
	}

	totals, err := s.payments.StatusTotals(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentStats: %w", err)
	}

	stats := &Stats{}
	for _, t := range totals {
		stats.TotalPayments += t.Count
		switch t.Status {
		case domain.PaymentStatusCompleted:
			stats.Completed += t.Count
			stats.TotalVolume += t.TotalAmount
			stats.TotalFees += t.PlatformFee
			stats.TotalEarnings += t.Earnings
		case domain.PaymentStatusFailed:
			stats.Failed += t.Count
		case domain.PaymentStatusRefunded:
			stats.Refunded += t.Count
		case domain.PaymentStatusPending, domain.PaymentStatusProcessing:
			stats.InFlight += t.Count
		}
	}
	return stats, nil
}
