package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"booking-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory fakes mirroring the store's CAS semantics, so the whole
// lifecycle can run without a database.

type memReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation

	// slots backs ListExpiredHolds the way the SQL join does.
	slots *memorySlotStore
}

func newMemReservationStore() *memReservationStore {
	return &memReservationStore{reservations: make(map[string]*models.Reservation)}
}

func (s *memReservationStore) CreateReservation(_ context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *r
	s.reservations[r.ID] = &stored
	return nil
}

func (s *memReservationStore) GetReservationByID(_ context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reservations[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *memReservationStore) GetReservationsByGuestID(_ context.Context, guestID int64) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reservation
	for _, r := range s.reservations {
		if r.GuestID == guestID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memReservationStore) TransitionStatus(_ context.Context, id, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reservations[id]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

func (s *memReservationStore) ConfirmReservation(_ context.Context, id, from, paymentStatus string, points int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reservations[id]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = models.StatusConfirmed
	stored.PaymentStatus = paymentStatus
	stored.PointsEarned = points
	return true, nil
}

func (s *memReservationStore) FailReservationPayment(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reservations[id]
	if !ok || stored.Status != models.StatusPendingPayment {
		return false, nil
	}
	stored.Status = models.StatusPaymentFailed
	stored.PaymentStatus = models.PaymentFailed
	return true, nil
}

func (s *memReservationStore) ListExpiredHolds(_ context.Context, now time.Time) ([]models.Reservation, error) {
	if s.slots == nil {
		return nil, nil
	}

	s.slots.mu.Lock()
	var lapsed []string
	for _, slot := range s.slots.slots {
		if slot.ExpiresAt != nil && !slot.ExpiresAt.After(now) {
			lapsed = append(lapsed, slot.ReservationID)
		}
	}
	s.slots.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reservation
	for _, id := range lapsed {
		if r, ok := s.reservations[id]; ok && r.Status == models.StatusPendingPayment {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memReservationStore) ListCompletable(_ context.Context, _ time.Time) ([]models.Reservation, error) {
	return nil, nil
}

type memRewardStore struct {
	mu      sync.Mutex
	entries []models.RewardTransaction
}

func (s *memRewardStore) InsertEarn(_ context.Context, reservationID string, userID, points int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ReservationID != nil && *e.ReservationID == reservationID && e.Kind == models.RewardKindEarn {
			return false, nil
		}
	}
	id := reservationID
	s.entries = append(s.entries, models.RewardTransaction{
		ReservationID: &id, UserID: userID, Points: points, Kind: models.RewardKindEarn,
	})
	return true, nil
}

func (s *memRewardStore) InsertReverse(_ context.Context, reservationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earn *models.RewardTransaction
	for i := range s.entries {
		e := &s.entries[i]
		if e.ReservationID == nil || *e.ReservationID != reservationID {
			continue
		}
		if e.Kind == models.RewardKindReverse {
			return false, nil
		}
		if e.Kind == models.RewardKindEarn {
			earn = e
		}
	}
	if earn == nil {
		return false, nil
	}
	id := reservationID
	s.entries = append(s.entries, models.RewardTransaction{
		ReservationID: &id, UserID: earn.UserID, Points: -earn.Points, Kind: models.RewardKindReverse,
	})
	return true, nil
}

func (s *memRewardStore) GetRewardBalance(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var balance int64
	for _, e := range s.entries {
		if e.UserID == userID {
			balance += e.Points
		}
	}
	return balance, nil
}

func (s *memRewardStore) GetRewardTransactions(_ context.Context, userID int64) ([]models.RewardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RewardTransaction
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	refunds []*models.RefundRequestedEvent
}

func (p *recordingPublisher) PublishReservationCreated(context.Context, *models.ReservationCreatedEvent) error {
	return nil
}
func (p *recordingPublisher) PublishApprovalRequested(context.Context, *models.ApprovalRequestedEvent) error {
	return nil
}
func (p *recordingPublisher) PublishReservationConfirmed(context.Context, *models.ReservationConfirmedEvent) error {
	return nil
}
func (p *recordingPublisher) PublishReservationCancelled(context.Context, *models.ReservationCancelledEvent) error {
	return nil
}
func (p *recordingPublisher) PublishHoldExpired(context.Context, *models.HoldExpiredEvent) error {
	return nil
}
func (p *recordingPublisher) PublishRefundRequested(_ context.Context, e *models.RefundRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds = append(p.refunds, e)
	return nil
}

type stubIntents struct{}

func (stubIntents) CreateIntent(context.Context, string, int64, string) (string, error) {
	return "pi_test", nil
}

type stubCatalog struct{}

func (stubCatalog) GetProperty(_ context.Context, id int64) (*models.Property, error) {
	return &models.Property{ID: id, OwnerID: 9, NightlyPrice: 100, Currency: "USD", MaxGuests: 4, Active: true}, nil
}

func (stubCatalog) NightlyPrice(context.Context, int64) (int64, string, error) {
	return 100, "USD", nil
}

func TestBookingLifecycle(t *testing.T) {
	resStore := newMemReservationStore()
	slotStore := &memorySlotStore{}
	rewardStore := &memRewardStore{}
	publisher := &recordingPublisher{}

	ledger := &RewardLedger{store: rewardStore, logger: zap.NewNop()}
	index := &AvailabilityIndex{store: slotStore, logger: zap.NewNop()}

	sm := &ReservationStateMachine{
		store:            resStore,
		availability:     index,
		rewards:          ledger,
		intents:          stubIntents{},
		catalog:          stubCatalog{},
		publisher:        publisher,
		logger:           zap.NewNop(),
		holdTTL:          20 * time.Minute,
		freeCancelWindow: 48 * time.Hour,
		pointsPerUnit:    2,
		serviceFeePct:    0,
		now:              func() time.Time { return testNow },
	}

	ctx := context.Background()
	input := &CreateReservationInput{
		PropertyID:    1,
		GuestID:       7,
		StartDate:     testNow.Add(10 * 24 * time.Hour),
		EndDate:       testNow.Add(13 * 24 * time.Hour),
		GuestCount:    2,
		PaymentMethod: models.MethodOnline,
	}

	// Create: 3 nights at 100/night.
	res, err := sm.CreateReservation(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, int64(300), res.TotalPrice)
	assert.Equal(t, models.StatusPendingPayment, res.Status)

	// A second guest wanting an overlapping range is turned away.
	overlapping := *input
	overlapping.GuestID = 8
	overlapping.StartDate = input.StartDate.Add(24 * time.Hour)
	overlapping.EndDate = input.EndDate.Add(24 * time.Hour)
	_, err = sm.CreateReservation(ctx, &overlapping)
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)

	// Payment confirms: CONFIRMED, PAID, 600 points credited.
	require.NoError(t, sm.ConfirmPayment(ctx, res.ID))
	confirmed, err := sm.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.Equal(t, models.PaymentPaid, confirmed.PaymentStatus)
	assert.Equal(t, int64(600), confirmed.PointsEarned)

	balance, err := ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)

	// A replayed confirmation changes nothing.
	err = sm.ConfirmPayment(ctx, res.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	balance, _ = ledger.Balance(ctx, 7)
	assert.Equal(t, int64(600), balance)

	// Cancel more than 48h out: full refund queued, points reversed.
	decision, err := sm.Cancel(ctx, res.ID, "guest")
	require.NoError(t, err)
	assert.True(t, decision.Refundable)
	assert.Equal(t, int64(300), decision.RefundAmount)

	require.Len(t, publisher.refunds, 1)
	assert.Equal(t, res.ID, publisher.refunds[0].ReservationID)
	assert.Equal(t, int64(300), publisher.refunds[0].Amount)

	balance, _ = ledger.Balance(ctx, 7)
	assert.Equal(t, int64(0), balance)

	cancelled, _ := sm.GetReservation(ctx, res.ID)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// The dates are free again for the guest who was turned away.
	_, err = sm.CreateReservation(ctx, &overlapping)
	assert.NoError(t, err)
}

func TestLateConfirmationAfterHoldExpiry(t *testing.T) {
	resStore := newMemReservationStore()
	slotStore := &memorySlotStore{}
	resStore.slots = slotStore
	rewardStore := &memRewardStore{}
	publisher := &recordingPublisher{}

	ledger := &RewardLedger{store: rewardStore, logger: zap.NewNop()}
	index := &AvailabilityIndex{store: slotStore, logger: zap.NewNop()}

	clock := testNow
	sm := &ReservationStateMachine{
		store:            resStore,
		availability:     index,
		rewards:          ledger,
		intents:          stubIntents{},
		catalog:          stubCatalog{},
		publisher:        publisher,
		logger:           zap.NewNop(),
		holdTTL:          20 * time.Minute,
		freeCancelWindow: 48 * time.Hour,
		pointsPerUnit:    2,
		serviceFeePct:    0,
		now:              func() time.Time { return clock },
	}

	ctx := context.Background()
	input := &CreateReservationInput{
		PropertyID:    1,
		GuestID:       7,
		StartDate:     testNow.Add(10 * 24 * time.Hour),
		EndDate:       testNow.Add(13 * 24 * time.Hour),
		GuestCount:    2,
		PaymentMethod: models.MethodOnline,
	}

	// Guest A opens an online booking and never pays.
	resA, err := sm.CreateReservation(ctx, input)
	require.NoError(t, err)

	clock = testNow.Add(30 * time.Minute)

	// The lapsed hold still blocks the dates until the sweep runs, so a
	// second guest cannot slip in while A's payment outcome is unknown.
	inputB := *input
	inputB.GuestID = 8
	_, err = sm.CreateReservation(ctx, &inputB)
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)

	// The sweep fails the stale hold and frees the range.
	swept, err := sm.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	resB, err := sm.CreateReservation(ctx, &inputB)
	require.NoError(t, err)

	// The gateway's late confirmation for A loses its CAS; B keeps the
	// dates and A earns nothing.
	err = sm.ConfirmPayment(ctx, resA.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	failedA, err := sm.GetReservation(ctx, resA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentFailed, failedA.Status)

	balance, err := ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	slots, err := slotStore.ListOccupyingSlots(ctx, 1, clock)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, resB.ID, slots[0].ReservationID)
}
