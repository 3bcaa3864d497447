package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PaymentEventType string

const (
	PaymentEventTypeCreated    PaymentEventType = "created"
	PaymentEventTypeProcessing PaymentEventType = "processing"
	PaymentEventTypeCompleted  PaymentEventType = "completed"
	PaymentEventTypeFailed     PaymentEventType = "failed"
	PaymentEventTypeRetried    PaymentEventType = "retried"
	PaymentEventTypeRefunded   PaymentEventType = "refunded"
)

// PaymentEvent is an audit-trail row recording one status transition of a
// PaymentRecord. Events are append-only.
type PaymentEvent struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	EventType PaymentEventType
	Actor     string
	Payload   json.RawMessage
	CreatedAt time.Time
}
