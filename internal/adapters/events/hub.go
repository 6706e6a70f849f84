package events

import (
	"context"
	"sync"

	"github.com/mikey/sms-guard/internal/core"
	"go.uber.org/zap"
)

// Hub holds the single active live event listener.
// Attaching a new listener replaces the previous one.
type Hub struct {
	mu       sync.RWMutex
	listener core.LiveEventListener
	gen      uint64
	logger   *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger.Named("events")}
}

// Attach sets the active listener and returns a func that detaches it.
// The detach func is a no-op once another listener has been attached.
func (h *Hub) Attach(l core.LiveEventListener) (detach func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	h.listener = l

	gen := h.gen
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.gen == gen {
			h.listener = nil
		}
	}
}

// Publish hands the event to the active listener. Without one it returns
// ErrNoListener and the event is gone.
func (h *Hub) Publish(ctx context.Context, event map[string]any) error {
	h.mu.RLock()
	l := h.listener
	h.mu.RUnlock()

	if l == nil {
		h.logger.Debug("No live event listener attached, dropping event")
		return core.ErrNoListener
	}
	return l.OnEvent(ctx, event)
}

// ListenerFunc adapts a function to core.LiveEventListener
type ListenerFunc func(ctx context.Context, event map[string]any) error

// OnEvent calls f
func (f ListenerFunc) OnEvent(ctx context.Context, event map[string]any) error {
	return f(ctx, event)
}

// Close detaches the active listener and closes it if it holds resources
func (h *Hub) Close() {
	h.mu.Lock()
	l := h.listener
	h.listener = nil
	h.gen++
	h.mu.Unlock()

	if closer, ok := l.(interface{ Close() }); ok {
		closer.Close()
	}
}
