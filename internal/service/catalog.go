package service

import (
	"context"
	"time"

	"booking-engine/internal/models"
	"booking-engine/internal/util"

	"go.uber.org/zap"
)

// CatalogStore reads properties from the catalog tables.
type CatalogStore interface {
	GetPropertyByID(ctx context.Context, id int64) (*models.Property, error)
	GetNightlyPrice(ctx context.Context, propertyID int64) (int64, string, error)
	GetCapacity(ctx context.Context, propertyID int64) (int, error)
}

// PriceCache caches nightly prices for the read-mostly catalog.
type PriceCache interface {
	CacheNightlyPrice(ctx context.Context, propertyID, price int64, currency string, ttl time.Duration) error
	GetCachedNightlyPrice(ctx context.Context, propertyID int64) (int64, string, bool, error)
}

// PropertyCatalog is the engine's view of the property catalog: nightly
// price, capacity, and active flag. Prices are cached in redis since
// catalog data changes rarely and every creation reads it.
type PropertyCatalog struct {
	store  CatalogStore
	cache  PriceCache
	logger *zap.Logger
}

const priceCacheTTL = 10 * time.Minute

// NewPropertyCatalog creates a new catalog client
func NewPropertyCatalog(store CatalogStore, cache PriceCache) *PropertyCatalog {
	return &PropertyCatalog{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// GetProperty fetches a property record
func (pc *PropertyCatalog) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	return pc.store.GetPropertyByID(ctx, id)
}

// NightlyPrice returns the current nightly price and currency,
// cache-first with a store fallback on miss.
func (pc *PropertyCatalog) NightlyPrice(ctx context.Context, propertyID int64) (int64, string, error) {
	if pc.cache != nil {
		price, currency, ok, err := pc.cache.GetCachedNightlyPrice(ctx, propertyID)
		if err != nil {
			pc.logger.Warn("Price cache read failed",
				zap.Int64("property_id", propertyID),
				zap.Error(err))
		} else if ok {
			return price, currency, nil
		}
	}

	price, currency, err := pc.store.GetNightlyPrice(ctx, propertyID)
	if err != nil {
		return 0, "", err
	}

	if pc.cache != nil {
		if err := pc.cache.CacheNightlyPrice(ctx, propertyID, price, currency, priceCacheTTL); err != nil {
			pc.logger.Warn("Price cache write failed",
				zap.Int64("property_id", propertyID),
				zap.Error(err))
		}
	}
	return price, currency, nil
}

// Capacity returns the maximum guest count for a property
func (pc *PropertyCatalog) Capacity(ctx context.Context, propertyID int64) (int, error) {
	return pc.store.GetCapacity(ctx, propertyID)
}
