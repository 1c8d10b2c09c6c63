package worker

import (
	"context"
	"time"

	"booking-engine/internal/broker"
	"booking-engine/internal/models"
	"booking-engine/internal/util"

	"go.uber.org/zap"
)

// Sweeper is the slice of the state machine the sweep worker drives.
type Sweeper interface {
	SweepExpiredHolds(ctx context.Context) (int, error)
	SweepCompletions(ctx context.Context) (int, error)
}

// Refunder settles refunds. The orchestrator implements it.
type Refunder interface {
	Refund(ctx context.Context, reservationID string, amount int64) error
}

// SweepWorker periodically expires lapsed payment holds and completes
// finished stays. Multiple instances may run; the per-row CAS in the
// state machine makes overlapping sweeps harmless.
type SweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(sweeper Sweeper, interval time.Duration) *SweepWorker {
	return &SweepWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs the sweep loop until the context is cancelled
func (w *SweepWorker) Start(ctx context.Context) {
	w.logger.Info("Sweep worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Sweep worker stopping")
			return
		case <-ticker.C:
			if _, err := w.sweeper.SweepExpiredHolds(ctx); err != nil {
				w.logger.Error("Hold expiry sweep failed", zap.Error(err))
			}
			if _, err := w.sweeper.SweepCompletions(ctx); err != nil {
				w.logger.Error("Completion sweep failed", zap.Error(err))
			}
		}
	}
}

// RefundWorker consumes RefundRequested events and settles them through
// the orchestrator. The consumer retries a failed settlement in place
// with backoff; the orchestrator's idempotent refund makes the retry
// safe.
type RefundWorker struct {
	consumer *broker.Consumer
	handler  *broker.EventHandler
	refunder Refunder
	logger   *zap.Logger
}

// NewRefundWorker creates a new refund worker
func NewRefundWorker(consumer *broker.Consumer, refunder Refunder) *RefundWorker {
	w := &RefundWorker{
		consumer: consumer,
		refunder: refunder,
		logger:   util.GetLogger(),
	}

	handler := broker.NewEventHandler()
	handler.OnRefundRequested(w.handleRefundRequested)
	w.handler = handler
	return w
}

// Start consumes refund events until the context is cancelled
func (w *RefundWorker) Start(ctx context.Context) error {
	w.logger.Info("Refund worker started")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop closes the underlying consumer
func (w *RefundWorker) Stop() {
	if err := w.consumer.Close(); err != nil {
		w.logger.Error("Failed to close refund consumer", zap.Error(err))
	}
}

func (w *RefundWorker) handleRefundRequested(ctx context.Context, event *models.RefundRequestedEvent) error {
	w.logger.Info("Processing refund request",
		zap.String("reservation_id", event.ReservationID),
		zap.Int64("amount", event.Amount))

	if err := w.refunder.Refund(ctx, event.ReservationID, event.Amount); err != nil {
		util.RefundRetriesTotal.Inc()
		w.logger.Error("Refund settlement failed, will retry",
			zap.String("reservation_id", event.ReservationID),
			zap.Error(err))
		return err
	}
	return nil
}
