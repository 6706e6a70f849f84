package alert

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BellAlerter rings the terminal bell as the notification sound.
// Only one alert plays at a time; a new alert stops the one in progress.
type BellAlerter struct {
	mu       sync.Mutex
	out      io.Writer
	duration time.Duration
	until    time.Time
	now      func() time.Time
	logger   *zap.Logger
}

// NewBellAlerter creates an alerter writing to out. Each alert is considered
// playing for duration.
func NewBellAlerter(out io.Writer, duration time.Duration, logger *zap.Logger) *BellAlerter {
	return &BellAlerter{
		out:      out,
		duration: duration,
		now:      time.Now,
		logger:   logger.Named("alert"),
	}
}

// Alert stops any alert in progress and starts a new one
func (a *BellAlerter) Alert(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if now.Before(a.until) {
		a.logger.Debug("Stopped alert in progress")
	}
	a.until = time.Time{}

	if _, err := io.WriteString(a.out, "\a"); err != nil {
		return fmt.Errorf("failed to play alert: %w", err)
	}

	a.until = now.Add(a.duration)
	return nil
}

// Playing reports whether an alert is still in progress
func (a *BellAlerter) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.now().Before(a.until)
}

// Stop stops the alert in progress
func (a *BellAlerter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.until = time.Time{}
}
