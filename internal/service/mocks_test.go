package service

import (
	"context"
	"time"

	"booking-engine/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockReservationStore struct {
	mock.Mock
}

func (m *MockReservationStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationStore) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockReservationStore) GetReservationsByGuestID(ctx context.Context, guestID int64) ([]models.Reservation, error) {
	args := m.Called(ctx, guestID)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockReservationStore) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationStore) ConfirmReservation(ctx context.Context, id, from, paymentStatus string, points int64) (bool, error) {
	args := m.Called(ctx, id, from, paymentStatus, points)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationStore) FailReservationPayment(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationStore) ListExpiredHolds(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockReservationStore) ListCompletable(ctx context.Context, today time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, today)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) Reserve(ctx context.Context, propertyID int64, rng models.DateRange, reservationID string, expiresAt *time.Time) error {
	args := m.Called(ctx, propertyID, rng, reservationID, expiresAt)
	return args.Error(0)
}

func (m *MockAvailability) Release(ctx context.Context, propertyID int64, reservationID string) error {
	args := m.Called(ctx, propertyID, reservationID)
	return args.Error(0)
}

func (m *MockAvailability) Promote(ctx context.Context, propertyID int64, reservationID string) error {
	args := m.Called(ctx, propertyID, reservationID)
	return args.Error(0)
}

type MockRewards struct {
	mock.Mock
}

func (m *MockRewards) Credit(ctx context.Context, reservationID string, userID, points int64) error {
	args := m.Called(ctx, reservationID, userID, points)
	return args.Error(0)
}

func (m *MockRewards) Reverse(ctx context.Context, reservationID string) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

type MockIntentCreator struct {
	mock.Mock
}

func (m *MockIntentCreator) CreateIntent(ctx context.Context, reservationID string, amount int64, currency string) (string, error) {
	args := m.Called(ctx, reservationID, amount, currency)
	return args.String(0), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockCatalog) NightlyPrice(ctx context.Context, propertyID int64) (int64, string, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).(int64), args.String(1), args.Error(2)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishApprovalRequested(ctx context.Context, event *models.ApprovalRequestedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishHoldExpired(ctx context.Context, event *models.HoldExpiredEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishRefundRequested(ctx context.Context, event *models.RefundRequestedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockRewardStore struct {
	mock.Mock
}

func (m *MockRewardStore) InsertEarn(ctx context.Context, reservationID string, userID, points int64) (bool, error) {
	args := m.Called(ctx, reservationID, userID, points)
	return args.Bool(0), args.Error(1)
}

func (m *MockRewardStore) InsertReverse(ctx context.Context, reservationID string) (bool, error) {
	args := m.Called(ctx, reservationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRewardStore) GetRewardBalance(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRewardStore) GetRewardTransactions(ctx context.Context, userID int64) ([]models.RewardTransaction, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.RewardTransaction), args.Error(1)
}

type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockPaymentStore) GetPaymentIntentByReservationID(ctx context.Context, reservationID string) (*models.PaymentIntent, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

func (m *MockPaymentStore) GetPaymentIntentByRef(ctx context.Context, intentRef string) (*models.PaymentIntent, error) {
	args := m.Called(ctx, intentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

func (m *MockPaymentStore) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockPaymentStore) MarkRefunded(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	args := m.Called(ctx, eventID, eventType)
	return args.Error(0)
}

type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) MarkWebhookSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, reservationID string, amount int64, currency string) (string, error) {
	args := m.Called(ctx, reservationID, amount, currency)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, intentRef string, amount int64) error {
	args := m.Called(ctx, intentRef, amount)
	return args.Error(0)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) ConfirmPayment(ctx context.Context, reservationID string) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockSink) FailPayment(ctx context.Context, reservationID, reason string) error {
	args := m.Called(ctx, reservationID, reason)
	return args.Error(0)
}
