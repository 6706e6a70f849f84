package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mikey/sms-guard/internal/adapters/cache"
	"github.com/mikey/sms-guard/internal/core"
)

var testNow = time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

func newPolicy() *core.Policy {
	return core.NewPolicy("", "", cache.NewMemoryDebounceCache(5*time.Second, zap.NewNop()), zap.NewNop())
}

func TestIsSpam(t *testing.T) {
	tests := []struct {
		name      string
		spam, ham float64
		want      bool
	}{
		{"clear spam", 0.91, 0.05, true},
		{"clear ham", 0.1, 0.9, false},
		{"threshold is exclusive", 0.5, 0.1, false},
		{"just above threshold", 0.5001, 0.1, true},
		{"tie is not spam", 0.7, 0.7, false},
		{"ham wins", 0.6, 0.8, false},
		{"all zero", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.IsSpam(tt.spam, tt.ham))
		})
	}
}

func TestPolicy_ExtractScores(t *testing.T) {
	p := newPolicy()

	spam, ham := p.ExtractScores(core.ClassificationResult{
		{Label: "OTHER", Score: 0.99},
		{Label: "DEĞIL", Score: 0.2},
		{Label: "BAHIS", Score: 0.7},
		{Label: "BAHIS", Score: 0.1},
	})
	assert.Equal(t, 0.7, spam, "first matching label wins")
	assert.Equal(t, 0.2, ham)

	spam, ham = p.ExtractScores(core.ClassificationResult{{Label: "OTHER", Score: 1}})
	assert.Zero(t, spam)
	assert.Zero(t, ham)

	// decomposed spelling of the ham label
	_, ham = p.ExtractScores(core.ClassificationResult{{Label: "DEĞIL", Score: 0.4}})
	assert.Equal(t, 0.4, ham)
}

func TestPolicy_Decide(t *testing.T) {
	ctx := context.Background()
	msg := core.NewInboundMessage("Mom", "dinner at 7?", testNow)

	t.Run("spam is quarantined", func(t *testing.T) {
		d := newPolicy().Decide(ctx, msg, core.Succeeded(core.ClassificationResult{
			{Label: "BAHIS", Score: 0.91},
			{Label: "DEĞIL", Score: 0.05},
		}), testNow)
		assert.True(t, d.IsSpam())
		assert.True(t, d.Quarantine())
		assert.False(t, d.Notify())
		assert.Equal(t, 0.91, d.SpamScore)
	})

	t.Run("failure fails open", func(t *testing.T) {
		d := newPolicy().Decide(ctx, msg, core.Failed(core.FailureMissingModel, core.ErrClassifierFailure), testNow)
		assert.False(t, d.IsSpam())
		assert.True(t, d.Notify())
		assert.True(t, d.FailOpen)
	})

	t.Run("empty result fails open", func(t *testing.T) {
		d := newPolicy().Decide(ctx, msg, core.Succeeded(nil), testNow)
		assert.Equal(t, core.DecisionNormal, d.Kind())
		assert.True(t, d.FailOpen)
	})

	t.Run("repeat within the window is debounced", func(t *testing.T) {
		p := newPolicy()
		ham := core.Succeeded(core.ClassificationResult{{Label: "DEĞIL", Score: 0.9}})

		assert.True(t, p.Decide(ctx, msg, ham, testNow).Notify())
		assert.False(t, p.Decide(ctx, msg, ham, testNow.Add(4*time.Second)).Notify())
		assert.True(t, p.Decide(ctx, msg, ham, testNow.Add(10*time.Second)).Notify())

		other := core.NewInboundMessage("Mom", "dinner at 8?", testNow)
		assert.True(t, p.Decide(ctx, other, ham, testNow.Add(11*time.Second)).Notify())
	})
}

func TestNotificationKey(t *testing.T) {
	a := core.NotificationKey("Mom", "dinner at 7?")
	assert.Equal(t, a, core.NotificationKey("Mom", "dinner at 7?"))
	assert.NotEqual(t, a, core.NotificationKey("Dad", "dinner at 7?"))
	assert.NotEqual(t, a, core.NotificationKey("Mom", "dinner at 8?"))
	assert.Regexp(t, `^Mom:[0-9a-f]{8}$`, a)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "Spam(quarantine=true)", core.SpamDecision(true).String())
	assert.Equal(t, "Normal(notify=false)", core.NormalDecision(false).String())
	assert.Equal(t, "spam", core.DecisionSpam.String())
}
