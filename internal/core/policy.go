package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	// SpamThreshold is the minimum spam score a Spam decision requires
	SpamThreshold = 0.5

	DefaultSpamLabel = "BAHIS"
	DefaultHamLabel  = "DEĞIL"
)

// Policy turns a classification into a triage decision
type Policy struct {
	spamLabel string
	hamLabel  string
	debounce  DebounceCache
	logger    *zap.Logger
}

// NewPolicy creates a new triage policy
func NewPolicy(spamLabel, hamLabel string, debounce DebounceCache, logger *zap.Logger) *Policy {
	if spamLabel == "" {
		spamLabel = DefaultSpamLabel
	}
	if hamLabel == "" {
		hamLabel = DefaultHamLabel
	}
	return &Policy{
		spamLabel: normalizeLabel(spamLabel),
		hamLabel:  normalizeLabel(hamLabel),
		debounce:  debounce,
		logger:    logger.Named("policy"),
	}
}

// normalizeLabel trims the label and puts it in NFC form so composed and
// decomposed spellings of the same label compare equal
func normalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// ExtractScores returns the spam and ham scores of a result.
// The first category with a matching label wins; a missing label scores 0.
func (p *Policy) ExtractScores(result ClassificationResult) (spamScore, hamScore float64) {
	var spamFound, hamFound bool
	for _, category := range result {
		label := normalizeLabel(category.Label)
		if !spamFound && label == p.spamLabel {
			spamScore = category.Score
			spamFound = true
		}
		if !hamFound && label == p.hamLabel {
			hamScore = category.Score
			hamFound = true
		}
	}
	return spamScore, hamScore
}

// IsSpam applies the score arbitration rule
func IsSpam(spamScore, hamScore float64) bool {
	return spamScore > hamScore && spamScore > SpamThreshold
}

// Decide derives the triage decision for a message.
// Failed or empty classifications fail open to Normal. For Normal decisions
// the debounce cache is consulted to decide whether a notification may be shown.
func (p *Policy) Decide(ctx context.Context, msg InboundMessage, c Classification, now time.Time) TriageDecision {
	switch {
	case c.Failed():
		p.logger.Warn("Classification failed, treating as normal message",
			zap.String("sender", msg.Sender),
			zap.String("reason", string(c.Reason)),
			zap.Error(c.Err))
		d := p.normal(ctx, msg, now)
		d.FailOpen = true
		return d
	case c.Empty():
		p.logger.Warn("Classification returned an empty result, treating as normal message",
			zap.String("sender", msg.Sender))
		d := p.normal(ctx, msg, now)
		d.FailOpen = true
		return d
	}

	spamScore, hamScore := p.ExtractScores(c.Result)
	p.logger.Debug("Extracted scores",
		zap.String("sender", msg.Sender),
		zap.Float64("spam_score", spamScore),
		zap.Float64("ham_score", hamScore))

	var d TriageDecision
	if IsSpam(spamScore, hamScore) {
		p.logger.Info("Spam message detected",
			zap.String("sender", msg.Sender),
			zap.Float64("spam_score", spamScore))
		d = SpamDecision(true)
	} else {
		d = p.normal(ctx, msg, now)
	}
	d.SpamScore = spamScore
	d.HamScore = hamScore
	return d
}

func (p *Policy) normal(ctx context.Context, msg InboundMessage, now time.Time) TriageDecision {
	key := NotificationKey(msg.Sender, msg.Body)
	notify := p.debounce.ShouldNotify(ctx, key, now)
	if !notify {
		p.logger.Debug("Notification debounced", zap.String("key", key))
	}
	return NormalDecision(notify)
}

// NotificationKey derives the debounce key for a sender and body
func NotificationKey(sender, body string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(body))
	return fmt.Sprintf("%s:%08x", sender, h.Sum32())
}
