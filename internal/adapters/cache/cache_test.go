package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryDebounceCache_Window(t *testing.T) {
	c := NewMemoryDebounceCache(5*time.Second, zap.NewNop())
	ctx := context.Background()
	t0 := time.UnixMilli(1_700_000_000_000)

	assert.True(t, c.ShouldNotify(ctx, "k", t0))
	assert.False(t, c.ShouldNotify(ctx, "k", t0.Add(1000*time.Millisecond)))
	assert.True(t, c.ShouldNotify(ctx, "k", t0.Add(6000*time.Millisecond)))
}

func TestMemoryDebounceCache_SuppressedCallKeepsTimestamp(t *testing.T) {
	c := NewMemoryDebounceCache(5*time.Second, zap.NewNop())
	ctx := context.Background()
	t0 := time.UnixMilli(0)

	require.True(t, c.ShouldNotify(ctx, "k", t0))
	require.False(t, c.ShouldNotify(ctx, "k", t0.Add(4*time.Second)))
	// measured from t0, not from the suppressed call
	assert.True(t, c.ShouldNotify(ctx, "k", t0.Add(5001*time.Millisecond)))
}

func TestMemoryDebounceCache_ExactWindowSuppresses(t *testing.T) {
	c := NewMemoryDebounceCache(5*time.Second, zap.NewNop())
	ctx := context.Background()
	t0 := time.UnixMilli(0)

	require.True(t, c.ShouldNotify(ctx, "k", t0))
	assert.False(t, c.ShouldNotify(ctx, "k", t0.Add(5*time.Second)))
}

func TestMemoryDebounceCache_KeysAreIndependent(t *testing.T) {
	c := NewMemoryDebounceCache(0, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	assert.True(t, c.ShouldNotify(ctx, "a", now))
	assert.True(t, c.ShouldNotify(ctx, "b", now))
	assert.Equal(t, 2, c.Len())
}

func TestMemoryDebounceCache_ConcurrentSameKey(t *testing.T) {
	c := NewMemoryDebounceCache(5*time.Second, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.ShouldNotify(ctx, "same", now) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), allowed.Load())
}

func newTestRedisCache(t *testing.T) (*RedisDebounceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisDebounceCache(rdb, 5*time.Second, zap.NewNop()), mr
}

func TestRedisDebounceCache_Window(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, c.Ping(ctx))
	assert.True(t, c.ShouldNotify(ctx, "k", now))

	mr.FastForward(1 * time.Second)
	assert.False(t, c.ShouldNotify(ctx, "k", now.Add(time.Second)))

	mr.FastForward(5 * time.Second)
	assert.True(t, c.ShouldNotify(ctx, "k", now.Add(6*time.Second)))
}

func TestRedisDebounceCache_ConcurrentSameKey(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()
	now := time.Now()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.ShouldNotify(ctx, "same", now) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), allowed.Load())
}

func TestRedisDebounceCache_FailsOpen(t *testing.T) {
	c, mr := newTestRedisCache(t)
	mr.Close()

	assert.True(t, c.ShouldNotify(context.Background(), "k", time.Now()))
	assert.True(t, c.ShouldNotify(context.Background(), "k", time.Now()))
}
