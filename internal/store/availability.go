package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-engine/internal/models"
)

// ReserveSlotTx atomically checks for overlap and inserts an occupying
// slot. The property row is locked FOR UPDATE so concurrent reserve and
// release calls for the same property serialize; two overlapping ranges
// can never both pass the scan. Every slot row occupies until released:
// a lapsed hold keeps blocking its range until the expiry sweep fails
// the reservation and deletes the row, so a late payment confirmation
// can never race a new booking onto the same dates.
func (s *Store) ReserveSlotTx(ctx context.Context, slot *models.AvailabilitySlot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var propertyID int64
	err = tx.GetContext(ctx, &propertyID,
		"SELECT id FROM properties WHERE id = $1 FOR UPDATE", slot.PropertyID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("property %d: %w", slot.PropertyID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock property: %w", err)
	}

	var conflict bool
	err = tx.GetContext(ctx, &conflict, `
		SELECT EXISTS(
			SELECT 1 FROM availability_slots
			WHERE property_id = $1
			  AND start_date < $2 AND end_date > $3
		)`,
		slot.PropertyID, slot.EndDate, slot.StartDate)
	if err != nil {
		return fmt.Errorf("failed to scan for overlap: %w", err)
	}
	if conflict {
		return models.ErrSlotUnavailable
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO availability_slots (property_id, reservation_id, start_date, end_date, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		slot.PropertyID, slot.ReservationID, slot.StartDate, slot.EndDate, slot.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert slot: %w", err)
	}

	return tx.Commit()
}

// ReleaseSlot removes the occupying entry for a reservation. Releasing
// an already-released slot is a no-op.
func (s *Store) ReleaseSlot(ctx context.Context, propertyID int64, reservationID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM availability_slots WHERE property_id = $1 AND reservation_id = $2",
		propertyID, reservationID)
	return err
}

// PromoteSlot clears the expiry on a hold once payment confirms; the
// range keeps occupying the index with no deadline.
func (s *Store) PromoteSlot(ctx context.Context, propertyID int64, reservationID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE availability_slots SET expires_at = NULL WHERE property_id = $1 AND reservation_id = $2",
		propertyID, reservationID)
	return err
}

// ListOccupyingSlots returns a property's occupying slots whose range
// has not yet ended (lapsed-but-unswept holds included, since they
// still block their dates)
func (s *Store) ListOccupyingSlots(ctx context.Context, propertyID int64, from time.Time) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := s.db.SelectContext(ctx, &slots, `
		SELECT * FROM availability_slots
		WHERE property_id = $1 AND end_date > $2
		ORDER BY start_date`,
		propertyID, from)
	return slots, err
}
