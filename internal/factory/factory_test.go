package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/sms-guard/internal/adapters/cache"
	"github.com/mikey/sms-guard/internal/adapters/localmodel"
	"github.com/mikey/sms-guard/internal/adapters/notify"
	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/receiver"
	"github.com/mikey/sms-guard/internal/utils"
)

func newTestConfig() *config.Config {
	return config.NewFromViper(config.NewEmptyViper())
}

func TestClassifierFactory(t *testing.T) {
	cfg := newTestConfig()
	logger := zap.NewNop()
	f := NewClassifierFactory(cfg, logger, utils.NewTextProcessor(logger))

	loader, err := f.CreateModelLoader(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &localmodel.Loader{}, loader)

	c, err := f.CreateClassifier()
	require.NoError(t, err)
	assert.NotNil(t, c)

	cfg.Set("classifier.provider", "openai")
	_, err = f.CreateModelLoader(context.Background())
	assert.ErrorContains(t, err, "API key is required")

	cfg.Set("classifier.provider", "tflite")
	_, err = f.CreateModelLoader(context.Background())
	assert.Error(t, err)
}

func TestDebounceFactory(t *testing.T) {
	cfg := newTestConfig()
	f := NewDebounceFactory(cfg, zap.NewNop())

	c, err := f.CreateDebounceCache()
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryDebounceCache{}, c)

	mr := miniredis.RunT(t)
	cfg.Set("debounce.type", "redis")
	cfg.Set("redis.addr", mr.Addr())
	c, err = f.CreateDebounceCache()
	require.NoError(t, err)
	assert.IsType(t, &cache.RedisDebounceCache{}, c)

	cfg.Set("debounce.type", "memcached")
	_, err = f.CreateDebounceCache()
	assert.Error(t, err)
}

func TestDebounceFactory_NonPositiveWindowSharedWithInbox(t *testing.T) {
	for _, w := range []string{"0s", "-3s"} {
		t.Run(w, func(t *testing.T) {
			cfg := newTestConfig()
			cfg.Set("debounce.window", w)
			cfg.Set("store.sqlite_path", ":memory:")
			logger := zap.NewNop()

			df := NewDebounceFactory(cfg, logger)
			window, err := df.Window()
			require.NoError(t, err)
			assert.Equal(t, cache.DefaultWindow, window)

			debounce, err := df.CreateDebounceCache()
			require.NoError(t, err)

			st, err := NewStoreFactory(cfg, logger).CreateStore()
			require.NoError(t, err)
			defer st.Stop()

			delivery := NewDeliveryFactory(cfg, logger)
			notifier, err := delivery.CreateNotifier()
			require.NoError(t, err)
			hub, err := delivery.CreateEventHub()
			require.NoError(t, err)
			sink := delivery.CreateSink(st, notifier, hub, window)

			ctx := context.Background()
			msg := core.NewInboundMessage("Mom", "dinner at 7?", time.Now())
			key := core.NotificationKey(msg.Sender, msg.Body)
			now := time.Now()

			assert.True(t, debounce.ShouldNotify(ctx, key, now))
			_, err = sink.PersistInbox(ctx, msg)
			require.NoError(t, err)

			assert.False(t, debounce.ShouldNotify(ctx, key, now.Add(time.Second)))
			_, err = sink.PersistInbox(ctx, msg)
			assert.ErrorIs(t, err, core.ErrDuplicate)

			n, err := st.CountInbox(ctx, "Mom", "dinner at 7?")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestStoreFactory_SQLite(t *testing.T) {
	cfg := newTestConfig()
	cfg.Set("store.sqlite_path", filepath.Join(t.TempDir(), "nested", "sms.db"))

	st, err := NewStoreFactory(cfg, zap.NewNop()).CreateStore()
	require.NoError(t, err)
	defer st.Stop()
}

func TestDeliveryFactory(t *testing.T) {
	cfg := newTestConfig()
	f := NewDeliveryFactory(cfg, zap.NewNop())

	n, err := f.CreateNotifier()
	require.NoError(t, err)
	assert.IsType(t, &notify.LogNotifier{}, n)

	cfg.Set("notifications.type", "smtp")
	_, err = f.CreateNotifier()
	assert.Error(t, err, "smtp notifier without recipient")

	hub, err := f.CreateEventHub()
	require.NoError(t, err)
	assert.NotNil(t, hub)
}

type nopReceiver struct{}

func (nopReceiver) Receive(receiver.Batch, receiver.Completion) {}

func TestGatewayFactory(t *testing.T) {
	cfg := newTestConfig()
	f := NewGatewayFactory(cfg, zap.NewNop())

	gateways := f.CreateGateways(nopReceiver{})
	require.Len(t, gateways, 1)
	assert.Equal(t, "http", gateways[0].Name())

	cfg.Set("gateway.smtp.enabled", true)
	assert.Len(t, f.CreateGateways(nopReceiver{}), 2)
}
