package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDebounceCache shares debounce state between processes through Redis.
//
// The check-and-record step is a single SET NX PX, so two concurrent callers
// with the same key can never both be allowed. Expiry is handled by Redis, so
// the window is measured on the server clock rather than on the now argument.
type RedisDebounceCache struct {
	rdb    *redis.Client
	window time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisDebounceCache creates a new Redis-backed debounce cache
func NewRedisDebounceCache(rdb *redis.Client, window time.Duration, logger *zap.Logger) *RedisDebounceCache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisDebounceCache{
		rdb:    rdb,
		window: window,
		prefix: "sms-guard:debounce:",
		logger: logger.Named("debounce"),
	}
}

// ShouldNotify returns true if no notification was allowed for key within the window.
// When Redis is unavailable the notification is allowed.
func (c *RedisDebounceCache) ShouldNotify(ctx context.Context, key string, now time.Time) bool {
	// the window is strict: an entry exactly window old still suppresses
	ok, err := c.rdb.SetNX(ctx, c.prefix+key, now.UnixMilli(), c.window+time.Millisecond).Result()
	if err != nil {
		c.logger.Error("Debounce lookup failed, allowing notification",
			zap.String("key", key),
			zap.Error(err))
		return true
	}

	if ok {
		c.logger.Debug("Allowing notification", zap.String("key", key))
	} else {
		c.logger.Debug("Skipping notification due to debounce", zap.String("key", key))
	}
	return ok
}

// Ping checks the Redis connection
func (c *RedisDebounceCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Stop closes the Redis client
func (c *RedisDebounceCache) Stop() {
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
