package delivery

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/mikey/sms-guard/internal/core"
	"go.uber.org/zap"
)

// Channels creates notification channels once and picks one per message
type Channels struct {
	notifier  core.Notifier
	threshold int
	standard  core.NotificationChannel
	urgent    core.NotificationChannel
	logger    *zap.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

// NewChannels creates a channel registry. Bodies shorter than threshold runes
// go to the standard channel, the rest to the urgent one.
func NewChannels(notifier core.Notifier, threshold int, logger *zap.Logger) *Channels {
	defaults := core.DefaultChannels()
	return &Channels{
		notifier:  notifier,
		threshold: threshold,
		standard:  defaults[0],
		urgent:    defaults[1],
		logger:    logger,
		ensured:   make(map[string]bool),
	}
}

// Select returns the channel for a notification body
func (c *Channels) Select(body string) core.NotificationChannel {
	if utf8.RuneCountInString(body) < c.threshold {
		return c.standard
	}
	return c.urgent
}

// Ensure creates the channel on first use. Failed attempts are retried on the next call.
func (c *Channels) Ensure(ctx context.Context, channel core.NotificationChannel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ensured[channel.ID] {
		return nil
	}

	if err := c.notifier.EnsureChannel(ctx, channel); err != nil {
		return fmt.Errorf("failed to create notification channel %s: %w", channel.ID, err)
	}

	c.ensured[channel.ID] = true
	c.logger.Debug("Notification channel ready", zap.String("channel", channel.ID))
	return nil
}

// EnsureAll creates both channels
func (c *Channels) EnsureAll(ctx context.Context) error {
	for _, ch := range []core.NotificationChannel{c.standard, c.urgent} {
		if err := c.Ensure(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}
