package service

import (
	"time"

	"booking-engine/internal/models"
)

// RefundDecision is the outcome of evaluating the cancellation policy.
type RefundDecision struct {
	RefundAmount int64 `json:"refund_amount"`
	Refundable   bool  `json:"refundable"`
}

// EvaluateCancellation computes refund eligibility for a reservation at
// the given instant. Pure: no state changes, no gateway calls. Callers
// must have already checked the reservation is in a cancellable status.
//
// Online bookings refund the full paid amount when cancellation happens
// more than freeCancelWindow before check-in, nothing afterwards. Cash
// bookings charged nothing, so they are always refundable at zero.
func EvaluateCancellation(res *models.Reservation, now time.Time, freeCancelWindow time.Duration) RefundDecision {
	if res.PaymentMethod == models.MethodCashOnArrival {
		return RefundDecision{RefundAmount: 0, Refundable: true}
	}

	var amountPaid int64
	if res.PaymentStatus == models.PaymentPaid {
		amountPaid = res.TotalPrice
	}

	if res.StartDate.Sub(now) > freeCancelWindow {
		return RefundDecision{RefundAmount: amountPaid, Refundable: true}
	}
	return RefundDecision{RefundAmount: 0, Refundable: false}
}

// PointsForPrice computes the reward points for a confirmed booking.
// Integer math floors the result.
func PointsForPrice(totalPrice, pointsPerUnit int64) int64 {
	return totalPrice * pointsPerUnit
}
