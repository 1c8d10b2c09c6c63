package store

import (
	"context"
	"database/sql"
	"fmt"

	"booking-engine/internal/models"

	"github.com/lib/pq"
)

// CreatePaymentIntent records the gateway intent for a reservation. The
// reservation_id column is unique; a duplicate insert reports
// ErrIntentExists so callers can re-read the original ref.
func (s *Store) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error {
	query := `
		INSERT INTO payment_intents (reservation_id, intent_ref, amount, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		intent.ReservationID, intent.IntentRef, intent.Amount, intent.Currency).
		Scan(&intent.ID, &intent.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrIntentExists
	}
	return err
}

// ErrIntentExists signals a concurrent intent creation lost the unique
// constraint race; the stored intent is authoritative.
var ErrIntentExists = fmt.Errorf("payment intent already exists")

// GetPaymentIntentByReservationID fetches the intent for a reservation
func (s *Store) GetPaymentIntentByReservationID(ctx context.Context, reservationID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := s.db.GetContext(ctx, &intent,
		"SELECT * FROM payment_intents WHERE reservation_id = $1", reservationID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("intent for reservation %s: %w", reservationID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// GetPaymentIntentByRef fetches an intent by its gateway reference
func (s *Store) GetPaymentIntentByRef(ctx context.Context, intentRef string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := s.db.GetContext(ctx, &intent,
		"SELECT * FROM payment_intents WHERE intent_ref = $1", intentRef)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("intent %s: %w", intentRef, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}
