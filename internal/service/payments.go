package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/models"
	"booking-engine/internal/store"
	"booking-engine/internal/util"

	"go.uber.org/zap"
)

// PaymentStore is the orchestrator's persistence surface.
type PaymentStore interface {
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error
	GetPaymentIntentByReservationID(ctx context.Context, reservationID string) (*models.PaymentIntent, error)
	GetPaymentIntentByRef(ctx context.Context, intentRef string) (*models.PaymentIntent, error)
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	MarkRefunded(ctx context.Context, id string) (bool, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// WebhookDeduper records gateway callback sightings. Advisory only; the
// durable processed-events table is the dedup authority.
type WebhookDeduper interface {
	MarkWebhookSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// PaymentSink receives each distinct gateway outcome exactly once. The
// reservation state machine implements it.
type PaymentSink interface {
	ConfirmPayment(ctx context.Context, reservationID string) error
	FailPayment(ctx context.Context, reservationID, reason string) error
}

// PaymentOrchestrator fronts the external payment gateway: idempotent
// intent creation, deduplicated callback handling, idempotent refunds.
type PaymentOrchestrator struct {
	store   PaymentStore
	deduper WebhookDeduper
	gateway PaymentGateway
	sink    PaymentSink
	timeout time.Duration
	logger  *zap.Logger
}

const webhookDedupTTL = 24 * time.Hour

// NewPaymentOrchestrator creates a new payment orchestrator
func NewPaymentOrchestrator(store PaymentStore, deduper WebhookDeduper, gateway PaymentGateway, timeout time.Duration) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		store:   store,
		deduper: deduper,
		gateway: gateway,
		timeout: timeout,
		logger:  util.GetLogger(),
	}
}

// BindStateMachine wires the outcome sink. Set once at startup; the
// orchestrator and state machine reference each other.
func (po *PaymentOrchestrator) BindStateMachine(sink PaymentSink) {
	po.sink = sink
}

// CreateIntent opens (or returns the already-open) payment intent for a
// reservation. Keyed by reservation id, so retries never create a
// duplicate charge.
func (po *PaymentOrchestrator) CreateIntent(ctx context.Context, reservationID string, amount int64, currency string) (string, error) {
	ctx, span := util.StartSpan(ctx, "PaymentOrchestrator.CreateIntent")
	defer span.End()

	if existing, err := po.store.GetPaymentIntentByReservationID(ctx, reservationID); err == nil {
		return existing.IntentRef, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("failed to check existing intent: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, po.timeout)
	defer cancel()

	intentRef, err := po.gateway.CreateIntent(callCtx, reservationID, amount, currency)
	if err != nil {
		return "", err
	}

	intent := &models.PaymentIntent{
		ReservationID: reservationID,
		IntentRef:     intentRef,
		Amount:        amount,
		Currency:      currency,
	}
	if err := po.store.CreatePaymentIntent(ctx, intent); err != nil {
		if errors.Is(err, store.ErrIntentExists) {
			// A concurrent retry won the insert; its intent is the one.
			stored, gerr := po.store.GetPaymentIntentByReservationID(ctx, reservationID)
			if gerr != nil {
				return "", gerr
			}
			return stored.IntentRef, nil
		}
		return "", fmt.Errorf("failed to store intent: %w", err)
	}

	util.PaymentIntentsTotal.Inc()
	po.logger.Info("Payment intent created",
		zap.String("reservation_id", reservationID),
		zap.String("intent_ref", intentRef),
		zap.Int64("amount", amount))
	return intentRef, nil
}

// HandleGatewayEvent consumes a webhook callback. Delivery is
// at-least-once: duplicates are acknowledged without a second
// transition, and a conflicting outcome after the first one resolved is
// ack-only as well (the state machine CAS rejects it).
func (po *PaymentOrchestrator) HandleGatewayEvent(ctx context.Context, event *models.GatewayEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentOrchestrator.HandleGatewayEvent")
	defer span.End()

	// The redis sighting is advisory only: the durable processed_events
	// row decides whether an event is a duplicate. A cache hit without a
	// durable row means the previous attempt died mid-handling, so the
	// redelivery must run the sink again.
	seenInCache := false
	if po.deduper != nil {
		fresh, err := po.deduper.MarkWebhookSeen(ctx, event.EventID, webhookDedupTTL)
		if err != nil {
			po.logger.Warn("Webhook dedup cache unavailable", zap.Error(err))
		} else if !fresh {
			seenInCache = true
		}
	}

	processed, err := po.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		util.WebhookDuplicatesTotal.Inc()
		po.logger.Info("Duplicate gateway event", zap.String("event_id", event.EventID))
		return nil
	}
	if seenInCache {
		po.logger.Info("Gateway event seen before but never settled, reprocessing",
			zap.String("event_id", event.EventID))
	}

	intent, err := po.store.GetPaymentIntentByRef(ctx, event.IntentRef)
	if err != nil {
		return fmt.Errorf("failed to resolve intent %s: %w", event.IntentRef, err)
	}

	switch event.Outcome {
	case models.GatewayOutcomeConfirmed:
		err = po.sink.ConfirmPayment(ctx, intent.ReservationID)
	case models.GatewayOutcomeFailed:
		err = po.sink.FailPayment(ctx, intent.ReservationID, event.Reason)
	default:
		po.logger.Warn("Unknown gateway outcome",
			zap.String("event_id", event.EventID),
			zap.String("outcome", event.Outcome))
		return po.store.MarkEventProcessed(ctx, event.EventID, event.Outcome)
	}

	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			// The reservation already resolved (racing cancel, expiry,
			// or the opposite outcome landed first). Ack only.
			po.logger.Info("Gateway outcome arrived after resolution",
				zap.String("reservation_id", intent.ReservationID),
				zap.String("outcome", event.Outcome))
			return po.store.MarkEventProcessed(ctx, event.EventID, event.Outcome)
		}
		return err
	}

	return po.store.MarkEventProcessed(ctx, event.EventID, event.Outcome)
}

// Refund refunds a paid reservation. Idempotent: a reservation already
// REFUNDED returns nil without a second gateway call.
func (po *PaymentOrchestrator) Refund(ctx context.Context, reservationID string, amount int64) error {
	ctx, span := util.StartSpan(ctx, "PaymentOrchestrator.Refund")
	defer span.End()

	res, err := po.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.PaymentStatus == models.PaymentRefunded {
		po.logger.Info("Refund already settled", zap.String("reservation_id", reservationID))
		return nil
	}
	if res.PaymentStatus != models.PaymentPaid {
		po.logger.Warn("Refund requested for unpaid reservation",
			zap.String("reservation_id", reservationID),
			zap.String("payment_status", res.PaymentStatus))
		return nil
	}

	intent, err := po.store.GetPaymentIntentByReservationID(ctx, reservationID)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, po.timeout)
	defer cancel()

	if err := po.gateway.Refund(callCtx, intent.IntentRef, amount); err != nil {
		return err
	}

	if _, err := po.store.MarkRefunded(ctx, reservationID); err != nil {
		return fmt.Errorf("failed to mark refunded: %w", err)
	}

	util.RefundsIssuedTotal.Inc()
	po.logger.Info("Refund issued",
		zap.String("reservation_id", reservationID),
		zap.Int64("amount", amount))
	return nil
}
