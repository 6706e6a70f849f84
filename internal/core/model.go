package core

import (
	"fmt"
	"time"
)

// InboundMessage represents a reassembled incoming text message
type InboundMessage struct {
	Sender     string
	Body       string
	ReceivedAt time.Time
}

// NewInboundMessage creates an inbound message
func NewInboundMessage(sender, body string, receivedAt time.Time) InboundMessage {
	return InboundMessage{
		Sender:     sender,
		Body:       body,
		ReceivedAt: receivedAt,
	}
}

// Category is a single label/score pair produced by the classifier
type Category struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ClassificationResult is the ordered category list in the order the model produced it
type ClassificationResult []Category

// FailureReason describes why a classification could not be produced
type FailureReason string

const (
	FailureMissingModel FailureReason = "missing_model"
	FailureInference    FailureReason = "inference"
	FailurePanic        FailureReason = "panic"
	FailureRateLimit    FailureReason = "rate_limit"
	FailureParse        FailureReason = "parse"
)

// Classification is the outcome of one classify call: either a result or a failure.
// A zero Classification is an empty, successful result.
type Classification struct {
	Result ClassificationResult
	Reason FailureReason
	Err    error
}

// Succeeded wraps a classifier result
func Succeeded(result ClassificationResult) Classification {
	return Classification{Result: result}
}

// Failed wraps a classifier failure
func Failed(reason FailureReason, err error) Classification {
	return Classification{Reason: reason, Err: err}
}

// Failed reports whether the classifier could not produce a result
func (c Classification) Failed() bool {
	return c.Err != nil
}

// Empty reports whether the classifier succeeded but returned no categories
func (c Classification) Empty() bool {
	return c.Err == nil && len(c.Result) == 0
}

// DecisionKind tags the variant of a TriageDecision
type DecisionKind int

const (
	DecisionNormal DecisionKind = iota
	DecisionSpam
)

// String implements fmt.Stringer
func (k DecisionKind) String() string {
	switch k {
	case DecisionSpam:
		return "spam"
	case DecisionNormal:
		return "normal"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// TriageDecision is either Spam{Quarantine} or Normal{Notify}.
// Use SpamDecision and NormalDecision to build one.
type TriageDecision struct {
	kind       DecisionKind
	quarantine bool
	notify     bool

	SpamScore float64
	HamScore  float64
	FailOpen  bool
}

// SpamDecision creates a Spam decision
func SpamDecision(quarantine bool) TriageDecision {
	return TriageDecision{kind: DecisionSpam, quarantine: quarantine}
}

// NormalDecision creates a Normal decision
func NormalDecision(notify bool) TriageDecision {
	return TriageDecision{kind: DecisionNormal, notify: notify}
}

// Kind returns the decision variant
func (d TriageDecision) Kind() DecisionKind {
	return d.kind
}

// IsSpam reports whether the decision is the Spam variant
func (d TriageDecision) IsSpam() bool {
	return d.kind == DecisionSpam
}

// Quarantine reports whether a Spam decision requires quarantine storage
func (d TriageDecision) Quarantine() bool {
	return d.kind == DecisionSpam && d.quarantine
}

// Notify reports whether a Normal decision may surface an OS notification
func (d TriageDecision) Notify() bool {
	return d.kind == DecisionNormal && d.notify
}

// String implements fmt.Stringer
func (d TriageDecision) String() string {
	if d.IsSpam() {
		return fmt.Sprintf("Spam(quarantine=%t)", d.quarantine)
	}
	return fmt.Sprintf("Normal(notify=%t)", d.notify)
}

// Handle identifies a persisted record
type Handle int64

// LiveEvent is the payload pushed to the application layer for every triaged message
type LiveEvent struct {
	Body     string
	Address  string
	Date     time.Time
	ThreadID string
	Read     string
	Kind     string
}

// NewLiveEvent builds the live event for a message at the given time
func NewLiveEvent(msg InboundMessage, at time.Time) LiveEvent {
	return LiveEvent{
		Body:     msg.Body,
		Address:  msg.Sender,
		Date:     at,
		ThreadID: "0",
		Read:     "0",
		Kind:     "inbox",
	}
}

// ToMap converts the event to the map shape listeners receive
func (e LiveEvent) ToMap() map[string]any {
	return map[string]any{
		"body":      e.Body,
		"address":   e.Address,
		"date":      e.Date.UnixMilli(),
		"thread_id": e.ThreadID,
		"read":      e.Read,
		"kind":      e.Kind,
	}
}

// NotificationChannel describes a persistent notification channel
type NotificationChannel struct {
	ID          string
	Name        string
	Description string
	Intrusive   bool
}

const (
	ChannelDefaultID = "sms_notification_channel"
	ChannelHighID    = "sms_notification_high_channel"
)

// DefaultChannels returns the two notification channels with their fixed metadata
func DefaultChannels() []NotificationChannel {
	return []NotificationChannel{
		{
			ID:          ChannelDefaultID,
			Name:        "SMS Notifications",
			Description: "SMS message notifications",
		},
		{
			ID:          ChannelHighID,
			Name:        "Urgent SMS Notifications",
			Description: "Important SMS message notifications",
			Intrusive:   true,
		},
	}
}

// Notification is a user-facing notification ready to be posted
type Notification struct {
	ID      int32
	Channel NotificationChannel
	Title   string
	Body    string
}
