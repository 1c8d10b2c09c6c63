package models

import "time"

// Property represents bookable inventory from the catalog (read-mostly)
type Property struct {
	ID           int64     `db:"id" json:"id"`
	OwnerID      int64     `db:"owner_id" json:"owner_id"`
	NightlyPrice int64     `db:"nightly_price" json:"nightly_price"`
	Currency     string    `db:"currency" json:"currency"`
	MaxGuests    int       `db:"max_guests" json:"max_guests"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DateRange is a half-open interval [Start, End): the end date itself is
// not occupied, so back-to-back checkout/checkin on the same day is legal.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Nights returns the number of billable nights in the range.
func (r DateRange) Nights() int64 {
	return int64(r.End.Sub(r.Start).Hours() / 24)
}

// Overlaps reports whether two half-open ranges share at least one night.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Valid reports whether the range is non-empty and properly ordered.
func (r DateRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Reservation is the aggregate root of the booking lifecycle.
// totalPrice and pointsEarned are assigned once and never recomputed.
type Reservation struct {
	ID               string    `db:"id" json:"id"`
	PropertyID       int64     `db:"property_id" json:"property_id"`
	GuestID          int64     `db:"guest_id" json:"guest_id"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	GuestCount       int       `db:"guest_count" json:"guest_count"`
	TotalPrice       int64     `db:"total_price" json:"total_price"`
	Currency         string    `db:"currency" json:"currency"`
	PaymentMethod    string    `db:"payment_method" json:"payment_method"`
	Status           string    `db:"status" json:"status"`
	PaymentStatus    string    `db:"payment_status" json:"payment_status"`
	PointsEarned     int64     `db:"points_earned" json:"points_earned"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	LastTransitionAt time.Time `db:"last_transition_at" json:"last_transition_at"`
}

// Range returns the reservation's date range.
func (r *Reservation) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

// AvailabilitySlot is one occupying entry in the availability index.
// ExpiresAt is set only while the backing reservation is awaiting online
// payment and tells the expiry sweep when the hold may be failed. Every
// slot, lapsed hold or not, occupies its range until released.
type AvailabilitySlot struct {
	PropertyID    int64      `db:"property_id" json:"property_id"`
	ReservationID string     `db:"reservation_id" json:"reservation_id"`
	StartDate     time.Time  `db:"start_date" json:"start_date"`
	EndDate       time.Time  `db:"end_date" json:"end_date"`
	ExpiresAt     *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// RewardTransaction is one append-only ledger entry. A reservation gets
// at most one EARN followed by at most one REVERSE.
type RewardTransaction struct {
	ID            int64     `db:"id" json:"id"`
	ReservationID *string   `db:"reservation_id" json:"reservation_id,omitempty"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Points        int64     `db:"points" json:"points"`
	Kind          string    `db:"kind" json:"kind"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PaymentIntent links a reservation to its gateway intent. One per
// reservation, enforced by a unique constraint.
type PaymentIntent struct {
	ID            int64     `db:"id" json:"id"`
	ReservationID string    `db:"reservation_id" json:"reservation_id"`
	IntentRef     string    `db:"intent_ref" json:"intent_ref"`
	Amount        int64     `db:"amount" json:"amount"`
	Currency      string    `db:"currency" json:"currency"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Reservation statuses
const (
	StatusPendingPayment      = "PENDING_PAYMENT"
	StatusPendingHostApproval = "PENDING_HOST_APPROVAL"
	StatusConfirmed           = "CONFIRMED"
	StatusCompleted           = "COMPLETED"
	StatusPaymentFailed       = "PAYMENT_FAILED"
	StatusCancelled           = "CANCELLED"
)

// Payment statuses
const (
	PaymentUnpaid   = "UNPAID"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
	PaymentFailed   = "FAILED"
)

// Payment methods
const (
	MethodOnline        = "ONLINE"
	MethodCashOnArrival = "CASH_ON_ARRIVAL"
)

// Ledger entry kinds
const (
	RewardKindEarn    = "EARN"
	RewardKindReverse = "REVERSE"
)

// TerminalStatus reports whether no further transitions are legal.
func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusPaymentFailed:
		return true
	}
	return false
}
