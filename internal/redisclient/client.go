package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquirePropertyLock takes a short-lived lock serializing availability
// writes for one property. The database row lock stays authoritative;
// this keeps hot properties from piling up on the same row.
func (c *Client) AcquirePropertyLock(ctx context.Context, propertyID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:property:%d", propertyID), "1", ttl).Result()
}

// ReleasePropertyLock releases a property lock
func (c *Client) ReleasePropertyLock(ctx context.Context, propertyID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:property:%d", propertyID)).Err()
}

// MarkWebhookSeen records a gateway event id with TTL. Returns false
// when the id was already seen, giving a cheap first-pass dedup in
// front of the durable processed_events check.
func (c *Client) MarkWebhookSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("webhook:%s", eventID), "1", ttl).Result()
}

// CacheNightlyPrice caches a property's nightly price
func (c *Client) CacheNightlyPrice(ctx context.Context, propertyID, price int64, currency string, ttl time.Duration) error {
	key := fmt.Sprintf("price:%d", propertyID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "price", price)
	pipe.HSet(ctx, key, "currency", currency)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedNightlyPrice retrieves a cached nightly price; ok is false
// on a cache miss
func (c *Client) GetCachedNightlyPrice(ctx context.Context, propertyID int64) (price int64, currency string, ok bool, err error) {
	key := fmt.Sprintf("price:%d", propertyID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, "", false, err
	}
	if len(result) == 0 {
		return 0, "", false, nil
	}

	price, err = strconv.ParseInt(result["price"], 10, 64)
	if err != nil {
		return 0, "", false, fmt.Errorf("corrupt price cache for property %d: %w", propertyID, err)
	}
	return price, result["currency"], true, nil
}
