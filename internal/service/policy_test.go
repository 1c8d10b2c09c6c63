package service

import (
	"testing"
	"time"

	"booking-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateCancellation_OutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &models.Reservation{
		StartDate:     now.Add(49 * time.Hour),
		TotalPrice:    50000,
		PaymentMethod: models.MethodOnline,
		PaymentStatus: models.PaymentPaid,
	}

	decision := EvaluateCancellation(res, now, 48*time.Hour)

	assert.True(t, decision.Refundable)
	assert.Equal(t, int64(50000), decision.RefundAmount)
}

func TestEvaluateCancellation_InsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &models.Reservation{
		StartDate:     now.Add(47 * time.Hour),
		TotalPrice:    50000,
		PaymentMethod: models.MethodOnline,
		PaymentStatus: models.PaymentPaid,
	}

	decision := EvaluateCancellation(res, now, 48*time.Hour)

	assert.False(t, decision.Refundable)
	assert.Equal(t, int64(0), decision.RefundAmount)
}

func TestEvaluateCancellation_ExactBoundary(t *testing.T) {
	// Exactly 48h before check-in is NOT outside the window; the refund
	// requires strictly more lead time.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &models.Reservation{
		StartDate:     now.Add(48 * time.Hour),
		TotalPrice:    50000,
		PaymentMethod: models.MethodOnline,
		PaymentStatus: models.PaymentPaid,
	}

	decision := EvaluateCancellation(res, now, 48*time.Hour)

	assert.False(t, decision.Refundable)
	assert.Equal(t, int64(0), decision.RefundAmount)
}

func TestEvaluateCancellation_UnpaidRefundsNothing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &models.Reservation{
		StartDate:     now.Add(100 * time.Hour),
		TotalPrice:    50000,
		PaymentMethod: models.MethodOnline,
		PaymentStatus: models.PaymentUnpaid,
	}

	decision := EvaluateCancellation(res, now, 48*time.Hour)

	assert.True(t, decision.Refundable)
	assert.Equal(t, int64(0), decision.RefundAmount)
}

func TestEvaluateCancellation_CashAlwaysFree(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &models.Reservation{
		StartDate:     now.Add(time.Hour),
		TotalPrice:    50000,
		PaymentMethod: models.MethodCashOnArrival,
		PaymentStatus: models.PaymentUnpaid,
	}

	decision := EvaluateCancellation(res, now, 48*time.Hour)

	assert.True(t, decision.Refundable)
	assert.Equal(t, int64(0), decision.RefundAmount)
}

func TestPointsForPrice(t *testing.T) {
	assert.Equal(t, int64(2000), PointsForPrice(1000, 2))
	assert.Equal(t, int64(0), PointsForPrice(0, 2))
	assert.Equal(t, int64(500), PointsForPrice(500, 1))
}
