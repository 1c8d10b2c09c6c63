package store

import (
	"context"

	"booking-engine/internal/models"
)

// InsertEarn appends an EARN entry for a reservation unless one already
// exists. Returns false when the entry was already present, keeping
// credit idempotent against retries and duplicate confirmations.
func (s *Store) InsertEarn(ctx context.Context, reservationID string, userID, points int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_transactions (reservation_id, user_id, points, kind)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM reward_transactions WHERE reservation_id = $1 AND kind = $4
		)`,
		reservationID, userID, points, models.RewardKindEarn)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// InsertReverse appends a REVERSE entry matching the prior EARN, only
// when an EARN exists and has not been reversed yet. Returns false when
// there is nothing to reverse.
func (s *Store) InsertReverse(ctx context.Context, reservationID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_transactions (reservation_id, user_id, points, kind)
		SELECT e.reservation_id, e.user_id, -e.points, $2
		FROM reward_transactions e
		WHERE e.reservation_id = $1 AND e.kind = $3
		  AND NOT EXISTS (
			SELECT 1 FROM reward_transactions WHERE reservation_id = $1 AND kind = $2
		  )`,
		reservationID, models.RewardKindReverse, models.RewardKindEarn)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetRewardBalance sums a user's ledger entries
func (s *Store) GetRewardBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance,
		"SELECT COALESCE(SUM(points), 0) FROM reward_transactions WHERE user_id = $1", userID)
	return balance, err
}

// GetRewardTransactions returns a user's ledger entries, newest first
func (s *Store) GetRewardTransactions(ctx context.Context, userID int64) ([]models.RewardTransaction, error) {
	var txs []models.RewardTransaction
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM reward_transactions WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return txs, err
}
