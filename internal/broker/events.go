package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"booking-engine/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing reservation domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishReservationCreated publishes ReservationCreated
func (ep *EventPublisher) PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishApprovalRequested publishes ApprovalRequested for cash bookings
func (ep *EventPublisher) PublishApprovalRequested(ctx context.Context, event *models.ApprovalRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishReservationConfirmed publishes ReservationConfirmed
func (ep *EventPublisher) PublishReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishReservationCancelled publishes ReservationCancelled
func (ep *EventPublisher) PublishReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishHoldExpired publishes HoldExpired
func (ep *EventPublisher) PublishHoldExpired(ctx context.Context, event *models.HoldExpiredEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishRefundRequested queues an asynchronous refund for the worker
func (ep *EventPublisher) PublishRefundRequested(ctx context.Context, event *models.RefundRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

func reservationKey(reservationID string) string {
	return fmt.Sprintf("reservation-%s", reservationID)
}

// EventHandler routes consumed events to registered handlers
type EventHandler struct {
	onRefundRequested func(context.Context, *models.RefundRequestedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnRefundRequested registers a handler for RefundRequested events
func (eh *EventHandler) OnRefundRequested(handler func(context.Context, *models.RefundRequestedEvent) error) {
	eh.onRefundRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeRefundRequested:
		if eh.onRefundRequested != nil {
			var event models.RefundRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal RefundRequested event: %w", err)
			}
			return eh.onRefundRequested(ctx, &event)
		}

	default:
		// Other reservation events are for downstream consumers
		// (notifications, reporting); nothing to do here.
		log.Printf("Skipping event type: %s", baseEvent.EventType)
	}

	return nil
}
