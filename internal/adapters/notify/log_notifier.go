package notify

import (
	"context"
	"sync"

	"github.com/mikey/sms-guard/internal/core"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log. It is the default for headless hosts.
type LogNotifier struct {
	mu       sync.Mutex
	channels map[string]core.NotificationChannel
	logger   *zap.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		channels: make(map[string]core.NotificationChannel),
		logger:   logger.Named("notify"),
	}
}

// EnsureChannel registers the channel
func (n *LogNotifier) EnsureChannel(_ context.Context, channel core.NotificationChannel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.channels[channel.ID]; !ok {
		n.channels[channel.ID] = channel
		n.logger.Info("Created notification channel",
			zap.String("channel", channel.ID),
			zap.String("name", channel.Name))
	}
	return nil
}

// Post logs the notification
func (n *LogNotifier) Post(_ context.Context, notification core.Notification) error {
	n.logger.Info("New message",
		zap.Int32("id", notification.ID),
		zap.String("channel", notification.Channel.ID),
		zap.Bool("intrusive", notification.Channel.Intrusive),
		zap.String("title", notification.Title),
		zap.String("body", notification.Body))
	return nil
}

// StaticPermission is a permission checker with a fixed answer
type StaticPermission bool

// CanNotify returns the configured answer
func (p StaticPermission) CanNotify(context.Context) bool {
	return bool(p)
}
