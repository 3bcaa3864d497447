package domain

import (
	"time"

	"github.com/google/uuid"
)

type OfferStatus string

const (
	OfferStatusOpen      OfferStatus = "open"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusPickedUp  OfferStatus = "picked_up"
	OfferStatusDelivered OfferStatus = "delivered"
	OfferStatusCompleted OfferStatus = "completed"
	OfferStatusCancelled OfferStatus = "cancelled"
)

// Offer is the delivery-side collaborator. The payment core only reads its
// status, flips delivered offers to completed on payment success, and joins
// its display fields into earnings history rows.
type Offer struct {
	ID              uuid.UUID
	BusinessID      uuid.UUID
	RiderID         *uuid.UUID
	BusinessName    string
	PickupAddress   string
	DeliveryAddress string
	Status          OfferStatus
	AcceptedAt      *time.Time
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}
