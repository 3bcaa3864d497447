package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationPaymentReceived    NotificationType = "payment_received"
	NotificationPaymentSent        NotificationType = "payment_sent"
	NotificationPaymentFailed      NotificationType = "payment_failed"
	NotificationPaymentFailedFinal NotificationType = "payment_failed_final"
	NotificationPaymentRefunded    NotificationType = "payment_refunded"
)

// Notification is a fire-and-forget message for the notification sink.
// Delivery failures are logged by the caller and never surfaced.
type Notification struct {
	UserID  uuid.UUID
	Type    NotificationType
	Title   string
	Message string
	Data    json.RawMessage
}
