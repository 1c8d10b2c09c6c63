package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-engine/internal/models"
)

// CreateReservation persists a reservation in its initial state
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations
			(id, property_id, guest_id, start_date, end_date, guest_count,
			 total_price, currency, payment_method, status, payment_status, points_earned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)
		RETURNING created_at, last_transition_at`

	row := s.db.QueryRowxContext(ctx, query,
		r.ID, r.PropertyID, r.GuestID, r.StartDate, r.EndDate, r.GuestCount,
		r.TotalPrice, r.Currency, r.PaymentMethod, r.Status, r.PaymentStatus)
	return row.Scan(&r.CreatedAt, &r.LastTransitionAt)
}

// GetReservationByID retrieves a reservation by ID
func (s *Store) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reservation %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReservationsByGuestID retrieves a guest's reservations, newest first
func (s *Store) GetReservationsByGuestID(ctx context.Context, guestID int64) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations WHERE guest_id = $1 ORDER BY created_at DESC", guestID)
	return reservations, err
}

// TransitionStatus moves a reservation from one status to another as a
// compare-and-set. Returns false without error when the reservation was
// not in the expected status, so racing writers lose cleanly.
func (s *Store) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reservations SET status = $1, last_transition_at = NOW() WHERE id = $2 AND status = $3",
		to, id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ConfirmReservation performs the CAS into CONFIRMED, setting the
// payment status and the once-only points in the same statement.
func (s *Store) ConfirmReservation(ctx context.Context, id, from, paymentStatus string, points int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, payment_status = $2, points_earned = $3, last_transition_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.StatusConfirmed, paymentStatus, points, id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// FailReservationPayment performs the CAS into PAYMENT_FAILED
func (s *Store) FailReservationPayment(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, payment_status = $2, last_transition_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.StatusPaymentFailed, models.PaymentFailed, id, models.StatusPendingPayment)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkRefunded flips payment status PAID -> REFUNDED as a CAS; a false
// return means the reservation was already refunded (or never paid).
func (s *Store) MarkRefunded(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reservations SET payment_status = $1 WHERE id = $2 AND payment_status = $3",
		models.PaymentRefunded, id, models.PaymentPaid)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListExpiredHolds returns PENDING_PAYMENT reservations whose hold has
// lapsed as of the given instant
func (s *Store) ListExpiredHolds(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations, `
		SELECT r.* FROM reservations r
		JOIN availability_slots s ON s.reservation_id = r.id
		WHERE r.status = $1 AND s.expires_at IS NOT NULL AND s.expires_at <= $2`,
		models.StatusPendingPayment, now)
	return reservations, err
}

// ListCompletable returns CONFIRMED reservations whose stay has ended
func (s *Store) ListCompletable(ctx context.Context, today time.Time) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations WHERE status = $1 AND end_date <= $2",
		models.StatusConfirmed, today)
	return reservations, err
}
