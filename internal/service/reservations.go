package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/models"
	"booking-engine/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationStore is the state machine's persistence surface. Every
// status change goes through a compare-and-set so that racing writers
// (payment callbacks, cancellations, sweeps) resolve to one winner.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	GetReservationsByGuestID(ctx context.Context, guestID int64) ([]models.Reservation, error)
	TransitionStatus(ctx context.Context, id, from, to string) (bool, error)
	ConfirmReservation(ctx context.Context, id, from, paymentStatus string, points int64) (bool, error)
	FailReservationPayment(ctx context.Context, id string) (bool, error)
	ListExpiredHolds(ctx context.Context, now time.Time) ([]models.Reservation, error)
	ListCompletable(ctx context.Context, today time.Time) ([]models.Reservation, error)
}

// Availability is the index surface consumed by the state machine.
type Availability interface {
	Reserve(ctx context.Context, propertyID int64, rng models.DateRange, reservationID string, expiresAt *time.Time) error
	Release(ctx context.Context, propertyID int64, reservationID string) error
	Promote(ctx context.Context, propertyID int64, reservationID string) error
}

// Rewards is the ledger surface consumed by the state machine.
type Rewards interface {
	Credit(ctx context.Context, reservationID string, userID, points int64) error
	Reverse(ctx context.Context, reservationID string) error
}

// IntentCreator opens payment intents for online bookings.
type IntentCreator interface {
	CreateIntent(ctx context.Context, reservationID string, amount int64, currency string) (string, error)
}

// Catalog supplies property data and nightly pricing.
type Catalog interface {
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	NightlyPrice(ctx context.Context, propertyID int64) (int64, string, error)
}

// Publisher emits reservation domain events.
type Publisher interface {
	PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error
	PublishApprovalRequested(ctx context.Context, event *models.ApprovalRequestedEvent) error
	PublishReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error
	PublishReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error
	PublishHoldExpired(ctx context.Context, event *models.HoldExpiredEvent) error
	PublishRefundRequested(ctx context.Context, event *models.RefundRequestedEvent) error
}

// ReservationStateMachine drives the booking lifecycle: it opens
// reservations against the availability index and moves them through
// their states as payment, approval, cancellation, and sweep events
// arrive.
type ReservationStateMachine struct {
	store        ReservationStore
	availability Availability
	rewards      Rewards
	intents      IntentCreator
	catalog      Catalog
	publisher    Publisher
	logger       *zap.Logger

	holdTTL          time.Duration
	freeCancelWindow time.Duration
	pointsPerUnit    int64
	serviceFeePct    int64

	now func() time.Time
}

// NewReservationStateMachine creates a new state machine
func NewReservationStateMachine(
	store ReservationStore,
	availability Availability,
	rewards Rewards,
	intents IntentCreator,
	catalog Catalog,
	publisher Publisher,
	holdTTL, freeCancelWindow time.Duration,
	pointsPerUnit, serviceFeePct int64,
) *ReservationStateMachine {
	return &ReservationStateMachine{
		store:            store,
		availability:     availability,
		rewards:          rewards,
		intents:          intents,
		catalog:          catalog,
		publisher:        publisher,
		logger:           util.GetLogger(),
		holdTTL:          holdTTL,
		freeCancelWindow: freeCancelWindow,
		pointsPerUnit:    pointsPerUnit,
		serviceFeePct:    serviceFeePct,
		now:              time.Now,
	}
}

// CreateReservationInput carries a validated-at-the-edge booking request
type CreateReservationInput struct {
	PropertyID    int64
	GuestID       int64
	StartDate     time.Time
	EndDate       time.Time
	GuestCount    int
	PaymentMethod string
}

// CreateReservation validates the request, atomically claims the date
// range, and opens the reservation in its initial state. On any failure
// after the claim the slot is released; no partial state survives.
func (sm *ReservationStateMachine) CreateReservation(ctx context.Context, input *CreateReservationInput) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.CreateReservation")
	defer span.End()

	if input.GuestCount < 1 {
		util.ReservationsRejectedTotal.WithLabelValues("invalid_guest_count").Inc()
		return nil, models.ErrInvalidGuestCount
	}
	if input.PaymentMethod != models.MethodOnline && input.PaymentMethod != models.MethodCashOnArrival {
		util.ReservationsRejectedTotal.WithLabelValues("invalid_payment_method").Inc()
		return nil, fmt.Errorf("unknown payment method %q: %w", input.PaymentMethod, models.ErrInvalidPaymentMethod)
	}

	now := sm.now().UTC()
	rng := models.DateRange{Start: dateOnly(input.StartDate), End: dateOnly(input.EndDate)}
	if !rng.Valid() || rng.Start.Before(dateOnly(now)) {
		util.ReservationsRejectedTotal.WithLabelValues("invalid_range").Inc()
		return nil, models.ErrInvalidRange
	}

	property, err := sm.catalog.GetProperty(ctx, input.PropertyID)
	if err != nil {
		util.ReservationsRejectedTotal.WithLabelValues("property_not_found").Inc()
		return nil, err
	}
	if !property.Active {
		util.ReservationsRejectedTotal.WithLabelValues("property_inactive").Inc()
		return nil, fmt.Errorf("property %d is not bookable: %w", property.ID, models.ErrNotFound)
	}

	nightly, currency, err := sm.catalog.NightlyPrice(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}

	subtotal := nightly * rng.Nights()
	totalPrice := subtotal + subtotal*sm.serviceFeePct/100

	reservationID := uuid.NewString()

	var expiresAt *time.Time
	status := models.StatusPendingHostApproval
	if input.PaymentMethod == models.MethodOnline {
		deadline := now.Add(sm.holdTTL)
		expiresAt = &deadline
		status = models.StatusPendingPayment
	}

	if err := sm.availability.Reserve(ctx, input.PropertyID, rng, reservationID, expiresAt); err != nil {
		if errors.Is(err, models.ErrSlotUnavailable) {
			util.AvailabilityConflictsTotal.Inc()
			util.ReservationsRejectedTotal.WithLabelValues("slot_unavailable").Inc()
		}
		return nil, err
	}

	reservation := &models.Reservation{
		ID:            reservationID,
		PropertyID:    input.PropertyID,
		GuestID:       input.GuestID,
		StartDate:     rng.Start,
		EndDate:       rng.End,
		GuestCount:    input.GuestCount,
		TotalPrice:    totalPrice,
		Currency:      currency,
		PaymentMethod: input.PaymentMethod,
		Status:        status,
		PaymentStatus: models.PaymentUnpaid,
	}

	if err := sm.store.CreateReservation(ctx, reservation); err != nil {
		if relErr := sm.availability.Release(ctx, input.PropertyID, reservationID); relErr != nil {
			sm.logger.Error("Failed to release slot after create failure",
				zap.String("reservation_id", reservationID),
				zap.Error(relErr))
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	util.ReservationsCreatedTotal.WithLabelValues(input.PaymentMethod).Inc()
	sm.logger.Info("Reservation created",
		zap.String("reservation_id", reservationID),
		zap.Int64("property_id", input.PropertyID),
		zap.String("status", status),
		zap.Int64("total_price", totalPrice))

	if err := sm.publisher.PublishReservationCreated(ctx, &models.ReservationCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationCreated),
		ReservationID: reservationID,
		PropertyID:    input.PropertyID,
		GuestID:       input.GuestID,
		StartDate:     rng.Start,
		EndDate:       rng.End,
		TotalPrice:    totalPrice,
		PaymentMethod: input.PaymentMethod,
	}); err != nil {
		sm.logger.Error("Failed to publish ReservationCreated", zap.Error(err))
	}

	switch input.PaymentMethod {
	case models.MethodOnline:
		if _, err := sm.intents.CreateIntent(ctx, reservationID, totalPrice, currency); err != nil {
			// Transient gateway trouble: the reservation stays
			// PENDING_PAYMENT and the hold expiry cleans up if no
			// payment ever lands.
			sm.logger.Warn("Intent creation failed, hold will expire unpaid",
				zap.String("reservation_id", reservationID),
				zap.Error(err))
		}
	case models.MethodCashOnArrival:
		if err := sm.publisher.PublishApprovalRequested(ctx, &models.ApprovalRequestedEvent{
			BaseEvent:     newBaseEvent(models.EventTypeApprovalRequested),
			ReservationID: reservationID,
			PropertyID:    property.ID,
			OwnerID:       property.OwnerID,
		}); err != nil {
			sm.logger.Error("Failed to publish ApprovalRequested", zap.Error(err))
		}
	}

	return reservation, nil
}

// ConfirmPayment moves PENDING_PAYMENT -> CONFIRMED when the gateway
// reports success: the hold is promoted, points credited, payment PAID.
func (sm *ReservationStateMachine) ConfirmPayment(ctx context.Context, reservationID string) error {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.ConfirmPayment")
	defer span.End()

	res, err := sm.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}

	points := PointsForPrice(res.TotalPrice, sm.pointsPerUnit)
	won, err := sm.store.ConfirmReservation(ctx, reservationID, models.StatusPendingPayment, models.PaymentPaid, points)
	if err != nil {
		return fmt.Errorf("failed to confirm reservation: %w", err)
	}
	if !won {
		return fmt.Errorf("confirm payment for %s in status %s: %w", reservationID, res.Status, models.ErrInvalidTransition)
	}

	if err := sm.availability.Promote(ctx, res.PropertyID, reservationID); err != nil {
		sm.logger.Error("Failed to promote hold",
			zap.String("reservation_id", reservationID),
			zap.Error(err))
	}

	if err := sm.rewards.Credit(ctx, reservationID, res.GuestID, points); err != nil {
		sm.logger.Error("Failed to credit points",
			zap.String("reservation_id", reservationID),
			zap.Error(err))
	}

	util.ReservationsConfirmedTotal.Inc()
	sm.logger.Info("Reservation confirmed",
		zap.String("reservation_id", reservationID),
		zap.Int64("points", points))

	sm.publishConfirmed(ctx, res, points)
	return nil
}

// FailPayment moves PENDING_PAYMENT -> PAYMENT_FAILED and frees the slot
func (sm *ReservationStateMachine) FailPayment(ctx context.Context, reservationID, reason string) error {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.FailPayment")
	defer span.End()

	res, err := sm.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}

	won, err := sm.store.FailReservationPayment(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("failed to fail reservation: %w", err)
	}
	if !won {
		return fmt.Errorf("fail payment for %s in status %s: %w", reservationID, res.Status, models.ErrInvalidTransition)
	}

	if err := sm.availability.Release(ctx, res.PropertyID, reservationID); err != nil {
		sm.logger.Error("Failed to release slot after payment failure",
			zap.String("reservation_id", reservationID),
			zap.Error(err))
	}

	sm.logger.Warn("Payment failed",
		zap.String("reservation_id", reservationID),
		zap.String("reason", reason))
	return nil
}

// Approve moves PENDING_HOST_APPROVAL -> CONFIRMED for cash bookings.
// Payment stays UNPAID; it settles on arrival. Points credit now.
func (sm *ReservationStateMachine) Approve(ctx context.Context, reservationID string) error {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.Approve")
	defer span.End()

	res, err := sm.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}

	points := PointsForPrice(res.TotalPrice, sm.pointsPerUnit)
	won, err := sm.store.ConfirmReservation(ctx, reservationID, models.StatusPendingHostApproval, models.PaymentUnpaid, points)
	if err != nil {
		return fmt.Errorf("failed to approve reservation: %w", err)
	}
	if !won {
		return fmt.Errorf("approve %s in status %s: %w", reservationID, res.Status, models.ErrInvalidTransition)
	}

	if err := sm.rewards.Credit(ctx, reservationID, res.GuestID, points); err != nil {
		sm.logger.Error("Failed to credit points",
			zap.String("reservation_id", reservationID),
			zap.Error(err))
	}

	util.ReservationsConfirmedTotal.Inc()
	sm.logger.Info("Reservation approved by host",
		zap.String("reservation_id", reservationID))

	sm.publishConfirmed(ctx, res, points)
	return nil
}

// Reject moves PENDING_HOST_APPROVAL -> CANCELLED and frees the slot
func (sm *ReservationStateMachine) Reject(ctx context.Context, reservationID string) error {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.Reject")
	defer span.End()

	res, err := sm.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}

	won, err := sm.store.TransitionStatus(ctx, reservationID, models.StatusPendingHostApproval, models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to reject reservation: %w", err)
	}
	if !won {
		return fmt.Errorf("reject %s in status %s: %w", reservationID, res.Status, models.ErrInvalidTransition)
	}

	if err := sm.availability.Release(ctx, res.PropertyID, reservationID); err != nil {
		sm.logger.Error("Failed to release slot after rejection",
			zap.String("reservation_id", reservationID),
			zap.Error(err))
	}

	util.ReservationsCancelledTotal.Inc()
	sm.publishCancelled(ctx, res, "host_rejected")
	return nil
}

// Cancel moves CONFIRMED or PENDING_HOST_APPROVAL -> CANCELLED. The
// refund decision is returned to the caller; settlement itself happens
// asynchronously through the refund worker, keyed by the idempotent
// orchestrator refund.
func (sm *ReservationStateMachine) Cancel(ctx context.Context, reservationID, actor string) (RefundDecision, error) {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.Cancel")
	defer span.End()

	res, err := sm.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return RefundDecision{}, err
	}

	if res.Status != models.StatusConfirmed && res.Status != models.StatusPendingHostApproval {
		return RefundDecision{}, fmt.Errorf("cancel %s in status %s: %w", reservationID, res.Status, models.ErrInvalidTransition)
	}

	decision := EvaluateCancellation(res, sm.now().UTC(), sm.freeCancelWindow)

	// CAS from the status we observed; a racing confirmation or sweep
	// that got there first wins and we report InvalidTransition.
	won, err := sm.store.TransitionStatus(ctx, reservationID, res.Status, models.StatusCancelled)
	if err != nil {
		return RefundDecision{}, fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if !won {
		return RefundDecision{}, fmt.Errorf("cancel %s lost to concurrent transition: %w", reservationID, models.ErrInvalidTransition)
	}

	if err := sm.availability.Release(ctx, res.PropertyID, reservationID); err != nil {
		sm.logger.Error("Failed to release slot after cancellation",
			zap.String("reservation_id", reservationID),
			zap.Error(err))
	}

	if err := sm.rewards.Reverse(ctx, reservationID); err != nil {
		sm.logger.Error("Failed to reverse points",
			zap.String("reservation_id", reservationID),
			zap.Error(err))
	}

	if res.PaymentStatus == models.PaymentPaid && decision.RefundAmount > 0 {
		if err := sm.publisher.PublishRefundRequested(ctx, &models.RefundRequestedEvent{
			BaseEvent:     newBaseEvent(models.EventTypeRefundRequested),
			ReservationID: reservationID,
			Amount:        decision.RefundAmount,
			Currency:      res.Currency,
		}); err != nil {
			sm.logger.Error("Failed to publish RefundRequested",
				zap.String("reservation_id", reservationID),
				zap.Error(err))
		}
	}

	util.ReservationsCancelledTotal.Inc()
	sm.logger.Info("Reservation cancelled",
		zap.String("reservation_id", reservationID),
		zap.String("actor", actor),
		zap.Int64("refund_amount", decision.RefundAmount))

	sm.publishCancelled(ctx, res, actor)
	return decision, nil
}

// GetReservation retrieves a reservation by ID
func (sm *ReservationStateMachine) GetReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	return sm.store.GetReservationByID(ctx, reservationID)
}

// ListGuestReservations returns a guest's reservations, newest first
func (sm *ReservationStateMachine) ListGuestReservations(ctx context.Context, guestID int64) ([]models.Reservation, error) {
	return sm.store.GetReservationsByGuestID(ctx, guestID)
}

// SweepExpiredHolds fails PENDING_PAYMENT reservations whose hold has
// lapsed without a gateway outcome. Safe to run redundantly and
// concurrently with callbacks: the per-row CAS aborts when the status
// moved underneath, and row failures are logged and skipped.
func (sm *ReservationStateMachine) SweepExpiredHolds(ctx context.Context) (int, error) {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.SweepExpiredHolds")
	defer span.End()

	expired, err := sm.store.ListExpiredHolds(ctx, sm.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired holds: %w", err)
	}

	swept := 0
	for _, res := range expired {
		won, err := sm.store.FailReservationPayment(ctx, res.ID)
		if err != nil {
			sm.logger.Error("Hold expiry transition failed",
				zap.String("reservation_id", res.ID),
				zap.Error(err))
			continue
		}
		if !won {
			// A payment callback confirmed or failed it first.
			continue
		}

		if err := sm.availability.Release(ctx, res.PropertyID, res.ID); err != nil {
			sm.logger.Error("Failed to release expired hold",
				zap.String("reservation_id", res.ID),
				zap.Error(err))
		}

		if err := sm.publisher.PublishHoldExpired(ctx, &models.HoldExpiredEvent{
			BaseEvent:     newBaseEvent(models.EventTypeHoldExpired),
			ReservationID: res.ID,
			PropertyID:    res.PropertyID,
		}); err != nil {
			sm.logger.Error("Failed to publish HoldExpired", zap.Error(err))
		}

		util.HoldsExpiredTotal.Inc()
		swept++
	}

	if swept > 0 {
		sm.logger.Info("Expired holds swept", zap.Int("count", swept))
	}
	return swept, nil
}

// SweepCompletions moves CONFIRMED reservations whose stay has ended to
// COMPLETED. Completion touches no availability: the slot stays in the
// index as the historical record of the occupied dates.
func (sm *ReservationStateMachine) SweepCompletions(ctx context.Context) (int, error) {
	ctx, span := util.StartSpan(ctx, "ReservationStateMachine.SweepCompletions")
	defer span.End()

	completable, err := sm.store.ListCompletable(ctx, dateOnly(sm.now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("failed to list completable reservations: %w", err)
	}

	swept := 0
	for _, res := range completable {
		won, err := sm.store.TransitionStatus(ctx, res.ID, models.StatusConfirmed, models.StatusCompleted)
		if err != nil {
			sm.logger.Error("Completion transition failed",
				zap.String("reservation_id", res.ID),
				zap.Error(err))
			continue
		}
		if !won {
			continue
		}

		util.ReservationsCompletedTotal.Inc()
		swept++
	}

	if swept > 0 {
		sm.logger.Info("Completed stays swept", zap.Int("count", swept))
	}
	return swept, nil
}

func (sm *ReservationStateMachine) publishConfirmed(ctx context.Context, res *models.Reservation, points int64) {
	if err := sm.publisher.PublishReservationConfirmed(ctx, &models.ReservationConfirmedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationConfirmed),
		ReservationID: res.ID,
		PropertyID:    res.PropertyID,
		GuestID:       res.GuestID,
		PointsEarned:  points,
	}); err != nil {
		sm.logger.Error("Failed to publish ReservationConfirmed", zap.Error(err))
	}
}

func (sm *ReservationStateMachine) publishCancelled(ctx context.Context, res *models.Reservation, reason string) {
	if err := sm.publisher.PublishReservationCancelled(ctx, &models.ReservationCancelledEvent{
		BaseEvent:     newBaseEvent(models.EventTypeReservationCancelled),
		ReservationID: res.ID,
		PropertyID:    res.PropertyID,
		Reason:        reason,
	}); err != nil {
		sm.logger.Error("Failed to publish ReservationCancelled", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
