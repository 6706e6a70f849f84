package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/sms-guard/internal/core"
)

func TestHub_SingleListener(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, hub.Publish(ctx, map[string]any{"body": "x"}), core.ErrNoListener)

	var first, second []map[string]any
	l1 := ListenerFunc(func(_ context.Context, ev map[string]any) error {
		first = append(first, ev)
		return nil
	})
	l2 := &sliceListener{events: &second}

	detach1 := hub.Attach(l1)
	require.NoError(t, hub.Publish(ctx, map[string]any{"body": "a"}))

	detach2 := hub.Attach(l2)
	require.NoError(t, hub.Publish(ctx, map[string]any{"body": "b"}))
	assert.Len(t, first, 1)
	assert.Len(t, second, 1)

	// detaching a listener that is no longer active keeps the current one
	detach1()
	require.NoError(t, hub.Publish(ctx, map[string]any{"body": "c"}))
	assert.Len(t, second, 2)

	detach2()
	assert.ErrorIs(t, hub.Publish(ctx, map[string]any{"body": "d"}), core.ErrNoListener)
}

func TestHub_DetachFuncListener(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx := context.Background()

	var got int
	l := ListenerFunc(func(context.Context, map[string]any) error {
		got++
		return nil
	})

	detach := hub.Attach(l)
	require.NoError(t, hub.Publish(ctx, map[string]any{"body": "a"}))

	assert.NotPanics(t, detach)
	assert.ErrorIs(t, hub.Publish(ctx, map[string]any{"body": "b"}), core.ErrNoListener)
	assert.Equal(t, 1, got)

	// the same func can be attached again after detaching
	detach = hub.Attach(l)
	require.NoError(t, hub.Publish(ctx, map[string]any{"body": "c"}))
	assert.Equal(t, 2, got)
	detach()
	detach()
	assert.ErrorIs(t, hub.Publish(ctx, map[string]any{"body": "d"}), core.ErrNoListener)
}

type sliceListener struct {
	events *[]map[string]any
}

func (s *sliceListener) OnEvent(_ context.Context, ev map[string]any) error {
	*s.events = append(*s.events, ev)
	return nil
}

var testTime = time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

type fakeChannel struct {
	exchange, key string
	msg           amqp091.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPListener_OnEvent(t *testing.T) {
	ch := &fakeChannel{}
	l := newAMQPListener(ch, "sms-guard", "sms.received", zap.NewNop())

	event := core.NewLiveEvent(core.NewInboundMessage("+905551112233", "dinner at 7?", testTime), testTime).ToMap()
	require.NoError(t, l.OnEvent(context.Background(), event))

	assert.Equal(t, "sms-guard", ch.exchange)
	assert.Equal(t, "sms.received", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, ch.msg.DeliveryMode)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, "inbox", decoded["kind"])
	assert.Equal(t, "+905551112233", decoded["address"])

	ch.err = errors.New("channel closed")
	assert.Error(t, l.OnEvent(context.Background(), event))

	assert.False(t, l.IsConnected())
	l.Close()
	assert.True(t, ch.closed)
}

func TestHub_CloseClosesListener(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ch := &fakeChannel{}
	hub.Attach(newAMQPListener(ch, "sms-guard", "sms.received", zap.NewNop()))

	hub.Close()
	assert.True(t, ch.closed)
	assert.ErrorIs(t, hub.Publish(context.Background(), map[string]any{}), core.ErrNoListener)

	// closing an empty hub is a no-op
	hub.Close()
}
