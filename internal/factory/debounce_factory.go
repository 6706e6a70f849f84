package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/sms-guard/internal/adapters/cache"
	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DebounceFactory creates debounce caches based on configuration
type DebounceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDebounceFactory creates a new debounce factory
func NewDebounceFactory(cfg *config.Config, logger *zap.Logger) *DebounceFactory {
	return &DebounceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// Window returns the configured debounce window. Non-positive values fall back
// to cache.DefaultWindow. The same value drives the debounce cache and the
// inbox duplicate check.
func (f *DebounceFactory) Window() (time.Duration, error) {
	debounceCfg, err := f.cfg.GetDebounce()
	if err != nil {
		return 0, err
	}
	if debounceCfg.Window <= 0 {
		f.logger.Warn("Non-positive debounce window, using default",
			zap.Duration("window", debounceCfg.Window),
			zap.Duration("default", cache.DefaultWindow))
		return cache.DefaultWindow, nil
	}
	return debounceCfg.Window, nil
}

// CreateDebounceCache creates the debounce cache based on the configuration
func (f *DebounceFactory) CreateDebounceCache() (core.DebounceCache, error) {
	debounceCfg, err := f.cfg.GetDebounce()
	if err != nil {
		return nil, err
	}
	window, err := f.Window()
	if err != nil {
		return nil, err
	}

	switch debounceCfg.Type {
	case "memory":
		return cache.NewMemoryDebounceCache(window, f.logger), nil
	case "redis":
		redisCfg := f.cfg.GetRedis()
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})

		c := cache.NewRedisDebounceCache(rdb, window, f.logger)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Ping(ctx); err != nil {
			// ShouldNotify fails open until Redis is reachable
			f.logger.Warn("Redis debounce cache unreachable at startup",
				zap.String("addr", redisCfg.Addr),
				zap.Error(err))
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported debounce cache type: %s", debounceCfg.Type)
	}
}
