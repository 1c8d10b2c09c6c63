package service

import (
	"context"
	"fmt"

	"booking-engine/internal/models"
	"booking-engine/internal/util"

	"go.uber.org/zap"
)

// RewardStore is the ledger persistence surface. Insert methods return
// false when the entry already exists, which is what makes the ledger
// idempotent against retries.
type RewardStore interface {
	InsertEarn(ctx context.Context, reservationID string, userID, points int64) (bool, error)
	InsertReverse(ctx context.Context, reservationID string) (bool, error)
	GetRewardBalance(ctx context.Context, userID int64) (int64, error)
	GetRewardTransactions(ctx context.Context, userID int64) ([]models.RewardTransaction, error)
}

// RewardLedger is the append-only points ledger tied to bookings.
type RewardLedger struct {
	store  RewardStore
	logger *zap.Logger
}

// NewRewardLedger creates a new reward ledger
func NewRewardLedger(store RewardStore) *RewardLedger {
	return &RewardLedger{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Credit appends an EARN entry for a reservation. A reservation earns
// at most once; repeated credits are acknowledged as no-ops.
func (rl *RewardLedger) Credit(ctx context.Context, reservationID string, userID, points int64) error {
	ctx, span := util.StartSpan(ctx, "RewardLedger.Credit")
	defer span.End()

	inserted, err := rl.store.InsertEarn(ctx, reservationID, userID, points)
	if err != nil {
		return fmt.Errorf("failed to credit points: %w", err)
	}
	if !inserted {
		rl.logger.Info("Points already credited",
			zap.String("reservation_id", reservationID))
		return nil
	}

	util.RewardPointsCreditedTotal.Add(float64(points))
	rl.logger.Info("Points credited",
		zap.String("reservation_id", reservationID),
		zap.Int64("user_id", userID),
		zap.Int64("points", points))
	return nil
}

// Reverse appends a REVERSE entry matching the prior EARN. Without an
// EARN, or after a prior REVERSE, it is a no-op.
func (rl *RewardLedger) Reverse(ctx context.Context, reservationID string) error {
	ctx, span := util.StartSpan(ctx, "RewardLedger.Reverse")
	defer span.End()

	inserted, err := rl.store.InsertReverse(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("failed to reverse points: %w", err)
	}
	if !inserted {
		rl.logger.Info("No earn to reverse",
			zap.String("reservation_id", reservationID))
		return nil
	}

	util.RewardPointsReversedTotal.Inc()
	rl.logger.Info("Points reversed", zap.String("reservation_id", reservationID))
	return nil
}

// Balance returns a user's current points balance
func (rl *RewardLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	return rl.store.GetRewardBalance(ctx, userID)
}

// Transactions returns a user's ledger entries
func (rl *RewardLedger) Transactions(ctx context.Context, userID int64) ([]models.RewardTransaction, error) {
	return rl.store.GetRewardTransactions(ctx, userID)
}
