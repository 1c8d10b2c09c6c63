package service

import (
	"context"
	"time"

	"booking-engine/internal/models"
	"booking-engine/internal/util"

	"go.uber.org/zap"
)

// AvailabilityStore is the persistence surface of the index. The
// implementation must make ReserveSlotTx atomic per property.
type AvailabilityStore interface {
	ReserveSlotTx(ctx context.Context, slot *models.AvailabilitySlot) error
	ReleaseSlot(ctx context.Context, propertyID int64, reservationID string) error
	PromoteSlot(ctx context.Context, propertyID int64, reservationID string) error
	ListOccupyingSlots(ctx context.Context, propertyID int64, from time.Time) ([]models.AvailabilitySlot, error)
}

// PropertyLocker serializes availability writes per property ahead of
// the database row lock.
type PropertyLocker interface {
	AcquirePropertyLock(ctx context.Context, propertyID int64, ttl time.Duration) (bool, error)
	ReleasePropertyLock(ctx context.Context, propertyID int64) error
}

// AvailabilityIndex is the authoritative record of which date ranges
// occupy each property, with atomic reserve/release/promote.
type AvailabilityIndex struct {
	store  AvailabilityStore
	locks  PropertyLocker
	logger *zap.Logger
}

const propertyLockTTL = 5 * time.Second

// NewAvailabilityIndex creates a new availability index
func NewAvailabilityIndex(store AvailabilityStore, locks PropertyLocker) *AvailabilityIndex {
	return &AvailabilityIndex{
		store:  store,
		locks:  locks,
		logger: util.GetLogger(),
	}
}

// Reserve atomically claims a date range for a reservation. A non-nil
// expiresAt makes the entry a hold the expiry sweep may fail; the range
// stays occupied until released even after the hold lapses. Returns
// ErrSlotUnavailable on overlap, ErrNotFound for an unknown property,
// ErrInvalidRange for empty or inverted ranges.
func (ai *AvailabilityIndex) Reserve(ctx context.Context, propertyID int64, rng models.DateRange, reservationID string, expiresAt *time.Time) error {
	ctx, span := util.StartSpan(ctx, "AvailabilityIndex.Reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.AvailabilityReserveLatency.Observe(time.Since(start).Seconds())
	}()

	if !rng.Valid() {
		return models.ErrInvalidRange
	}

	// The redis lock only thins contention on hot properties; the row
	// lock inside ReserveSlotTx is what guarantees atomicity, so a
	// failed or unavailable lock degrades to the DB path.
	if ai.locks != nil {
		locked, err := ai.locks.AcquirePropertyLock(ctx, propertyID, propertyLockTTL)
		if err != nil {
			ai.logger.Warn("Property lock unavailable, relying on row lock",
				zap.Int64("property_id", propertyID),
				zap.Error(err))
		} else if locked {
			defer func() {
				if err := ai.locks.ReleasePropertyLock(ctx, propertyID); err != nil {
					ai.logger.Warn("Failed to release property lock",
						zap.Int64("property_id", propertyID),
						zap.Error(err))
				}
			}()
		}
	}

	slot := &models.AvailabilitySlot{
		PropertyID:    propertyID,
		ReservationID: reservationID,
		StartDate:     rng.Start,
		EndDate:       rng.End,
		ExpiresAt:     expiresAt,
	}

	if err := ai.store.ReserveSlotTx(ctx, slot); err != nil {
		return err
	}
	return nil
}

// Release frees the range held by a reservation
func (ai *AvailabilityIndex) Release(ctx context.Context, propertyID int64, reservationID string) error {
	ctx, span := util.StartSpan(ctx, "AvailabilityIndex.Release")
	defer span.End()

	return ai.store.ReleaseSlot(ctx, propertyID, reservationID)
}

// Promote marks a hold as no-longer-expiring once payment confirms
func (ai *AvailabilityIndex) Promote(ctx context.Context, propertyID int64, reservationID string) error {
	ctx, span := util.StartSpan(ctx, "AvailabilityIndex.Promote")
	defer span.End()

	return ai.store.PromoteSlot(ctx, propertyID, reservationID)
}

// Occupying returns the ranges blocking a property's calendar from
// today onward
func (ai *AvailabilityIndex) Occupying(ctx context.Context, propertyID int64) ([]models.AvailabilitySlot, error) {
	return ai.store.ListOccupyingSlots(ctx, propertyID, time.Now().UTC())
}
