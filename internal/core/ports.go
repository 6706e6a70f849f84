package core

import (
	"context"
	"time"
)

// Classifier produces a classification for a message body.
// Implementations never panic and never return a nil-error failure.
type Classifier interface {
	Classify(ctx context.Context, text string) Classification
}

// ModelHandle is a loaded classifier model. It must be closed after use.
type ModelHandle interface {
	// Classify runs inference and returns categories in model order
	Classify(ctx context.Context, text string) (ClassificationResult, error)

	// Close releases any resources held by the handle
	Close() error
}

// ModelLoader loads a model handle for a single classify call
type ModelLoader interface {
	Load(ctx context.Context) (ModelHandle, error)
}

// DebounceCache suppresses repeated notifications for the same key within a window
type DebounceCache interface {
	// ShouldNotify records now under key and returns true if the key is new or expired
	ShouldNotify(ctx context.Context, key string, now time.Time) bool
}

// QuarantineStore persists spam messages
type QuarantineStore interface {
	InsertQuarantine(ctx context.Context, msg InboundMessage) (Handle, error)
}

// InboxStore persists legitimate messages
type InboxStore interface {
	// ExistsSince reports whether the same sender/body was inserted after since
	ExistsSince(ctx context.Context, sender, body string, since time.Time) (bool, error)

	// InsertInbox stores the message and returns its handle
	InsertInbox(ctx context.Context, msg InboundMessage, insertedAt time.Time) (Handle, error)
}

// ContactDirectory resolves a sender address to a display name
type ContactDirectory interface {
	// DisplayName returns the contact name or "" if unknown
	DisplayName(ctx context.Context, sender string) (string, error)
}

// Notifier posts notifications on a channel
type Notifier interface {
	// EnsureChannel creates the channel if it does not exist yet
	EnsureChannel(ctx context.Context, channel NotificationChannel) error

	// Post shows the notification to the user
	Post(ctx context.Context, n Notification) error
}

// PermissionChecker reports whether posting notifications is allowed
type PermissionChecker interface {
	CanNotify(ctx context.Context) bool
}

// Alerter plays the notification sound and vibration
type Alerter interface {
	Alert(ctx context.Context) error
}

// LiveEventListener receives live events from the pipeline
type LiveEventListener interface {
	OnEvent(ctx context.Context, event map[string]any) error
}

// DeliverySink performs the external actions a triage decision triggers.
// Each action is independent; a failure in one must not prevent the others.
type DeliverySink interface {
	PersistQuarantine(ctx context.Context, msg InboundMessage) (Handle, error)
	PersistInbox(ctx context.Context, msg InboundMessage) (Handle, error)
	EmitLiveEvent(ctx context.Context, msg InboundMessage)
	NotifyUser(ctx context.Context, title, body string) error
	PlayAlert(ctx context.Context)
	DisplayName(ctx context.Context, sender string) string
}
