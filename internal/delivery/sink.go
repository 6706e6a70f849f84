package delivery

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/metrics"
	"go.uber.org/zap"
)

// EventPublisher pushes live events to the attached application listener
type EventPublisher interface {
	Publish(ctx context.Context, event map[string]any) error
}

// Dependencies are the external collaborators the sink drives
type Dependencies struct {
	Quarantine core.QuarantineStore
	Inbox      core.InboxStore
	Contacts   core.ContactDirectory
	Notifier   core.Notifier
	Permission core.PermissionChecker
	Alerter    core.Alerter
	Events     EventPublisher
}

// Options tune the sink behaviour
type Options struct {
	// InboxWindow is the duplicate window for inbox inserts
	InboxWindow time.Duration
	// LongBodyThreshold routes bodies of this many runes or more to the urgent channel
	LongBodyThreshold int
	// Sound enables the alerter
	Sound bool
}

// Sink implements core.DeliverySink over the configured collaborators
type Sink struct {
	deps     Dependencies
	opts     Options
	channels *Channels
	logger   *zap.Logger
	now      func() time.Time

	inboxMu sync.Mutex
}

// NewSink creates a new delivery sink
func NewSink(deps Dependencies, opts Options, logger *zap.Logger) *Sink {
	logger = logger.Named("delivery")
	return &Sink{
		deps:     deps,
		opts:     opts,
		channels: NewChannels(deps.Notifier, opts.LongBodyThreshold, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for inbox and event timestamps
func (s *Sink) WithClock(now func() time.Time) *Sink {
	s.now = now
	return s
}

// Channels returns the notification channel registry
func (s *Sink) Channels() *Channels {
	return s.channels
}

// PersistQuarantine appends the message to the quarantine store
func (s *Sink) PersistQuarantine(ctx context.Context, msg core.InboundMessage) (core.Handle, error) {
	h, err := s.deps.Quarantine.InsertQuarantine(ctx, msg)
	if err != nil {
		metrics.IncrementSinkAction("quarantine", "error")
		return 0, fmt.Errorf("failed to quarantine message: %w", err)
	}

	metrics.IncrementSinkAction("quarantine", "ok")
	s.logger.Info("Message quarantined",
		zap.String("sender", msg.Sender),
		zap.Int64("handle", int64(h)))
	return h, nil
}

// PersistInbox stores the message unless the same sender and body were stored
// inside the inbox window, in which case ErrDuplicate is returned.
func (s *Sink) PersistInbox(ctx context.Context, msg core.InboundMessage) (core.Handle, error) {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()

	now := s.now()

	exists, err := s.deps.Inbox.ExistsSince(ctx, msg.Sender, msg.Body, now.Add(-s.opts.InboxWindow))
	if err != nil {
		metrics.IncrementSinkAction("inbox", "error")
		return 0, fmt.Errorf("failed to check inbox for duplicates: %w", err)
	}
	if exists {
		metrics.IncrementSinkAction("inbox", "duplicate")
		s.logger.Debug("Identical message already in inbox, skipping insert",
			zap.String("sender", msg.Sender))
		return 0, core.ErrDuplicate
	}

	h, err := s.deps.Inbox.InsertInbox(ctx, msg, now)
	if err != nil {
		metrics.IncrementSinkAction("inbox", "error")
		return 0, fmt.Errorf("failed to save message to inbox: %w", err)
	}

	metrics.IncrementSinkAction("inbox", "ok")
	return h, nil
}

// EmitLiveEvent pushes the message to the application listener.
// Without a listener the event is dropped.
func (s *Sink) EmitLiveEvent(ctx context.Context, msg core.InboundMessage) {
	if s.deps.Events == nil {
		return
	}

	err := s.deps.Events.Publish(ctx, core.NewLiveEvent(msg, s.now()).ToMap())
	switch {
	case err == nil:
		metrics.IncrementSinkAction("live_event", "ok")
	case errors.Is(err, core.ErrNoListener):
		metrics.IncrementSinkAction("live_event", "dropped")
	default:
		metrics.IncrementSinkAction("live_event", "error")
		s.logger.Warn("Failed to deliver live event",
			zap.String("sender", msg.Sender),
			zap.Error(err))
	}
}

// NotifyUser posts a notification after checking the permission.
// A missing permission is logged and reported as ErrPermissionDenied.
func (s *Sink) NotifyUser(ctx context.Context, title, body string) error {
	if s.deps.Permission != nil && !s.deps.Permission.CanNotify(ctx) {
		metrics.IncrementSinkAction("notify", "denied")
		s.logger.Warn("Notification permission not granted, skipping notification")
		return core.ErrPermissionDenied
	}

	channel := s.channels.Select(body)
	if err := s.channels.Ensure(ctx, channel); err != nil {
		metrics.IncrementSinkAction("notify", "error")
		return fmt.Errorf("%w: %v", core.ErrNotificationFailure, err)
	}

	n := core.Notification{
		ID:      NotificationID(title),
		Channel: channel,
		Title:   title,
		Body:    body,
	}
	if err := s.deps.Notifier.Post(ctx, n); err != nil {
		metrics.IncrementSinkAction("notify", "error")
		return fmt.Errorf("%w: %v", core.ErrNotificationFailure, err)
	}

	metrics.IncrementSinkAction("notify", "ok")
	return nil
}

// PlayAlert plays the notification sound and vibration
func (s *Sink) PlayAlert(ctx context.Context) {
	if !s.opts.Sound || s.deps.Alerter == nil {
		return
	}
	if err := s.deps.Alerter.Alert(ctx); err != nil {
		metrics.IncrementSinkAction("alert", "error")
		s.logger.Warn("Failed to play alert", zap.Error(err))
		return
	}
	metrics.IncrementSinkAction("alert", "ok")
}

// DisplayName resolves the sender to a contact name, "" when unknown or on error
func (s *Sink) DisplayName(ctx context.Context, sender string) string {
	if s.deps.Contacts == nil {
		return ""
	}
	name, err := s.deps.Contacts.DisplayName(ctx, sender)
	if err != nil {
		s.logger.Warn("Contact lookup failed", zap.String("sender", sender), zap.Error(err))
		return ""
	}
	return name
}

// NotificationID derives a stable notification id from the title, so a newer
// message from the same contact replaces the previous notification.
func NotificationID(title string) int32 {
	h := fnv.New32a()
	h.Write([]byte(title))
	return int32(h.Sum32())
}

var _ core.DeliverySink = (*Sink)(nil)
