package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/sms-guard/internal/adapters/store"
	"github.com/mikey/sms-guard/internal/config"
	"go.uber.org/zap"
)

// StoreFactory creates the message store based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore opens the configured SQL store
func (f *StoreFactory) CreateStore() (*store.SQLStore, error) {
	storeCfg := f.cfg.GetStore()

	dsn, err := storeCfg.DSN()
	if err != nil {
		return nil, err
	}

	if storeCfg.Type == "sqlite" && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
	}

	return store.NewSQLStore(store.Dialect(storeCfg.Type), dsn, f.logger)
}
