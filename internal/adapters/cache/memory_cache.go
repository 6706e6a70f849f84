package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWindow is the notification debounce window
const DefaultWindow = 5 * time.Second

// MemoryDebounceCache is an in-process implementation of the DebounceCache interface.
//
// Entries are never swept: an expired entry stays in the map until the same key
// is seen again and overwritten. The map therefore grows with the number of
// distinct sender/body pairs seen over the process lifetime.
type MemoryDebounceCache struct {
	entries map[string]time.Time
	mu      sync.Mutex
	window  time.Duration
	logger  *zap.Logger
}

// NewMemoryDebounceCache creates a new in-memory debounce cache
func NewMemoryDebounceCache(window time.Duration, logger *zap.Logger) *MemoryDebounceCache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryDebounceCache{
		entries: make(map[string]time.Time),
		window:  window,
		logger:  logger.Named("debounce"),
	}
}

// ShouldNotify records now under key and returns true if the key was absent or
// its last allowed notification is older than the window
func (c *MemoryDebounceCache) ShouldNotify(_ context.Context, key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lastShown, ok := c.entries[key]
	if !ok || now.Sub(lastShown) > c.window {
		c.entries[key] = now
		c.logger.Debug("Allowing notification", zap.String("key", key))
		return true
	}

	c.logger.Debug("Skipping notification due to debounce", zap.String("key", key))
	return false
}

// Len returns the number of entries held, expired or not
func (c *MemoryDebounceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
