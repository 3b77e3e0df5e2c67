// Package cache is a thin JSON cache over Redis. A Cache with no client is
// valid and behaves as an always-missing cache, so the service runs without
// Redis.
package cache

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"
	"strconv"
	"time" // Time durations

	"github.com/redis/go-redis/v9" // Redis client
	log "github.com/sirupsen/logrus"
)

// Keys shared by the handlers that fill the cache and the services that invalidate it
const (
	KeyPendingDeposits    = "admin:pending:deposit"
	KeyPendingWithdrawals = "admin:pending:withdraw"
)

// Cache wraps an optional Redis client
type Cache struct {
	rdb *redis.Client
}

// New wraps rdb; rdb may be nil
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Connect opens a Redis client and pings it
func Connect(ctx context.Context, addr, password string, db int) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,     // Redis server address
		Password: password, // Redis password
		DB:       db,       // Redis database number
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return New(rdb), nil
}

// Enabled reports whether a Redis client is configured
func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

// Get retrieves a value from Redis and unmarshals it into dest
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// Set stores a value in Redis with a specified TTL
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Delete removes keys from Redis
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func versionKey(key string) string { return key + ":version" }

// VersionedKey returns key stamped with its current generation. Entries are
// stored under the stamped key, so a fill computed before an Invalidate lands
// under a generation no reader asks for again.
func (c *Cache) VersionedKey(ctx context.Context, key string) (string, error) {
	if !c.Enabled() {
		return key, nil
	}
	v, err := c.rdb.Get(ctx, versionKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		v = 0 // Never invalidated
	} else if err != nil {
		return "", err
	}
	return key + ":v" + strconv.FormatInt(v, 10), nil
}

// Invalidate starts a new generation of every key, logging instead of
// failing. Entries of older generations expire on their own TTL.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() {
		return
	}
	for _, key := range keys {
		if err := c.rdb.Incr(ctx, versionKey(key)).Err(); err != nil {
			log.WithError(err).WithField("key", key).Warn("Cache invalidation failed")
		}
	}
}

// Close releases the Redis client
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
