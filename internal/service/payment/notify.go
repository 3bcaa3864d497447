package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/swiftdash/payments-service/internal/domain"
	"github.com/swiftdash/payments-service/internal/logging"
)

// notify dispatches notifications off the request path. Failures are logged
// and swallowed; a broken sink never fails a payment.
func (s *Service) notify(ctx context.Context, notes ...domain.Notification) {
	if s.sink == nil || len(notes) == 0 {
		return
	}

	log := logging.FromContext(ctx)
	bg := context.WithoutCancel(ctx)

	go func() {
		for _, n := range notes {
			if err := s.sink.Send(bg, n); err != nil {
				log.Warn("notification dispatch failed",
					"user_id", n.UserID,
					"type", n.Type,
					"error", err,
				)
			}
		}
	}()
}

func formatAmount(amount int64, currency domain.Currency) string {
	return fmt.Sprintf("%.2f %s", float64(amount)/100, currency)
}

func notificationData(p *domain.PaymentRecord) json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"payment_id": p.ID,
		"offer_id":   p.OfferID,
		"status":     p.Status,
	})
	return data
}

func successNotifications(p *domain.PaymentRecord) []domain.Notification {
	data := notificationData(p)
	return []domain.Notification{
		{
			UserID:  p.RiderID,
			Type:    domain.NotificationPaymentReceived,
			Title:   "Payment received",
			Message: fmt.Sprintf("You earned %s for your delivery.", formatAmount(p.RiderEarnings, p.Currency)),
			Data:    data,
		},
		{
			UserID:  p.BusinessID,
			Type:    domain.NotificationPaymentSent,
			Title:   "Payment sent",
			Message: fmt.Sprintf("Your payment of %s was processed.", formatAmount(p.TotalAmount, p.Currency)),
			Data:    data,
		},
	}
}

func failureNotifications(p *domain.PaymentRecord, final bool) []domain.Notification {
	reason := "payment failed"
	if p.FailureReason != nil {
		reason = *p.FailureReason
	}

	notifType := domain.NotificationPaymentFailed
	title := "Payment failed"
	suffix := "We will retry automatically."
	if final {
		notifType = domain.NotificationPaymentFailedFinal
		title = "Payment failed permanently"
		suffix = "Please contact support."
	}

	data := notificationData(p)
	return []domain.Notification{
		{
			UserID:  p.BusinessID,
			Type:    notifType,
			Title:   title,
			Message: fmt.Sprintf("Payment of %s failed: %s. %s", formatAmount(p.TotalAmount, p.Currency), reason, suffix),
			Data:    data,
		},
		{
			UserID:  p.RiderID,
			Type:    notifType,
			Title:   title,
			Message: fmt.Sprintf("The payment for your delivery failed: %s. %s", reason, suffix),
			Data:    data,
		},
	}
}

func refundNotifications(p *domain.PaymentRecord) []domain.Notification {
	var amount int64
	if p.RefundAmount != nil {
		amount = *p.RefundAmount
	}

	data := notificationData(p)
	return []domain.Notification{
		{
			UserID:  p.BusinessID,
			Type:    domain.NotificationPaymentRefunded,
			Title:   "Refund issued",
			Message: fmt.Sprintf("A refund of %s was issued for your payment.", formatAmount(amount, p.Currency)),
			Data:    data,
		},
		{
			UserID:  p.RiderID,
			Type:    domain.NotificationPaymentRefunded,
			Title:   "Payment refunded",
			Message: fmt.Sprintf("A payment for your delivery was refunded (%s).", formatAmount(amount, p.Currency)),
			Data:    data,
		},
	}
}
