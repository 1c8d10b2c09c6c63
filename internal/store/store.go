package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-engine/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetPropertyByID retrieves a catalog property by ID
func (s *Store) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	var property models.Property
	err := s.db.GetContext(ctx, &property, "SELECT * FROM properties WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("property %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// GetNightlyPrice retrieves the current nightly price and currency
func (s *Store) GetNightlyPrice(ctx context.Context, propertyID int64) (int64, string, error) {
	property, err := s.GetPropertyByID(ctx, propertyID)
	if err != nil {
		return 0, "", err
	}
	return property.NightlyPrice, property.Currency, nil
}

// GetCapacity retrieves the maximum guest count for a property
func (s *Store) GetCapacity(ctx context.Context, propertyID int64) (int, error) {
	property, err := s.GetPropertyByID(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	return property.MaxGuests, nil
}

// IsEventProcessed checks whether a gateway event id has been handled
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed records a handled gateway event id
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
