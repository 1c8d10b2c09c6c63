package models

import "time"

// Event types
const (
	EventTypeReservationCreated   = "RESERVATION_CREATED"
	EventTypeApprovalRequested    = "APPROVAL_REQUESTED"
	EventTypeReservationConfirmed = "RESERVATION_CONFIRMED"
	EventTypeReservationCancelled = "RESERVATION_CANCELLED"
	EventTypeHoldExpired          = "HOLD_EXPIRED"
	EventTypeRefundRequested      = "REFUND_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationCreatedEvent published when a reservation opens
type ReservationCreatedEvent struct {
	BaseEvent
	ReservationID string    `json:"reservation_id"`
	PropertyID    int64     `json:"property_id"`
	GuestID       int64     `json:"guest_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	TotalPrice    int64     `json:"total_price"`
	PaymentMethod string    `json:"payment_method"`
}

// ApprovalRequestedEvent published for cash-on-arrival bookings so the
// host notification service can prompt the owner
type ApprovalRequestedEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	PropertyID    int64  `json:"property_id"`
	OwnerID       int64  `json:"owner_id"`
}

// ReservationConfirmedEvent published when a reservation reaches CONFIRMED
type ReservationConfirmedEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	PropertyID    int64  `json:"property_id"`
	GuestID       int64  `json:"guest_id"`
	PointsEarned  int64  `json:"points_earned"`
}

// ReservationCancelledEvent published on cancellation or host rejection
type ReservationCancelledEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	PropertyID    int64  `json:"property_id"`
	Reason        string `json:"reason"`
}

// HoldExpiredEvent published when the sweep fails an unpaid hold
type HoldExpiredEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	PropertyID    int64  `json:"property_id"`
}

// RefundRequestedEvent queues an asynchronous refund. The refund worker
// consumes it and retries the idempotent refund until acknowledged.
type RefundRequestedEvent struct {
	BaseEvent
	ReservationID string `json:"reservation_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

// GatewayEvent is the payload delivered by the payment gateway webhook.
// EventID is gateway-assigned and is the dedup key for at-least-once
// delivery.
type GatewayEvent struct {
	EventID   string `json:"event_id"`
	IntentRef string `json:"intent_ref"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
}

// Gateway outcome values
const (
	GatewayOutcomeConfirmed = "confirmed"
	GatewayOutcomeFailed    = "failed"
)
