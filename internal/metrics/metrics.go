package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_guard_messages_total",
			Help: "Total inbound messages by outcome.",
		},
		[]string{"outcome"}, // triaged, malformed, ignored
	)

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_guard_decisions_total",
			Help: "Total triage decisions by kind.",
		},
		[]string{"decision", "fail_open"},
	)

	classifierFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_guard_classifier_failures_total",
			Help: "Total classifier failures by reason.",
		},
		[]string{"reason"},
	)

	classifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sms_guard_classify_duration_seconds",
			Help:    "Classifier latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
	)

	sinkActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_guard_sink_actions_total",
			Help: "Delivery sink actions by action and status.",
		},
		[]string{"action", "status"},
	)

	notificationsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_guard_notifications_suppressed_total",
			Help: "Notifications suppressed by the debounce cache.",
		},
	)
)

// IncrementMessages counts an inbound message outcome
func IncrementMessages(outcome string) {
	messagesTotal.WithLabelValues(outcome).Inc()
}

// IncrementDecision counts a triage decision
func IncrementDecision(decision string, failOpen bool) {
	fo := "false"
	if failOpen {
		fo = "true"
	}
	decisionsTotal.WithLabelValues(decision, fo).Inc()
}

// IncrementClassifierFailure counts a classifier failure
func IncrementClassifierFailure(reason string) {
	classifierFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordClassifyDuration records classifier latency
func RecordClassifyDuration(d time.Duration) {
	classifyDuration.Observe(d.Seconds())
}

// IncrementSinkAction counts a delivery sink action
func IncrementSinkAction(action, status string) {
	sinkActionsTotal.WithLabelValues(action, status).Inc()
}

// IncrementSuppressedNotification counts a debounced notification
func IncrementSuppressedNotification() {
	notificationsSuppressed.Inc()
}
