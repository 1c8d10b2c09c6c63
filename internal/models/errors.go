package models

import "errors"

// Error taxonomy surfaced across the engine. Handlers translate these
// into reason codes; everything else is wrapped infrastructure failure.
var (
	// ErrSlotUnavailable means the requested date range conflicts with an
	// occupying reservation. Not retried automatically.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidRange rejects empty, inverted, or past-starting ranges.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidGuestCount rejects guest counts below one.
	ErrInvalidGuestCount = errors.New("invalid guest count")

	// ErrInvalidPaymentMethod rejects unknown payment methods.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidTransition means the requested transition is not legal
	// from the reservation's current status. The reservation is untouched.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotFound covers unknown property or reservation ids.
	ErrNotFound = errors.New("not found")

	// ErrPaymentGateway marks a transient gateway failure. Callers retry
	// with the same idempotency key; it never changes reservation state.
	ErrPaymentGateway = errors.New("payment gateway error")
)
