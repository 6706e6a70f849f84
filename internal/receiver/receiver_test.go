package receiver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikey/sms-guard/internal/core"
)

var at = time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

func ucs2(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}

func TestAssemble_OrdersAndDecodes(t *testing.T) {
	batch := Batch{
		Action: ActionSMSReceived,
		Sender: "+905551112233",
		Fragments: []Fragment{
			{Seq: 2, Encoding: EncodingUTF8, Data: []byte(" 7?")},
			{Seq: 0, Encoding: EncodingUCS2, Data: ucs2("dinner ")},
			{Seq: 1, Encoding: EncodingUTF8, Data: []byte("at")},
		},
		ReceivedAt: at,
	}

	msg, err := Assemble(batch)
	require.NoError(t, err)
	assert.Equal(t, "+905551112233", msg.Sender)
	assert.Equal(t, "dinner at 7?", msg.Body)
	assert.Equal(t, at, msg.ReceivedAt)
}

func TestAssemble_KeepsSenderAddressVerbatim(t *testing.T) {
	msg, err := Assemble(NewTextBatch(" +905551112233 ", "dinner at 7?", at))
	require.NoError(t, err)
	assert.Equal(t, " +905551112233 ", msg.Sender)

	other, err := Assemble(NewTextBatch("+905551112233", "dinner at 7?", at))
	require.NoError(t, err)
	assert.NotEqual(t, core.NotificationKey(msg.Sender, msg.Body), core.NotificationKey(other.Sender, other.Body))
}

func TestAssemble_TurkishUCS2(t *testing.T) {
	msg, err := Assemble(Batch{
		Action:    ActionSMSReceived,
		Sender:    "BETCO",
		Fragments: []Fragment{{Seq: 0, Encoding: EncodingUCS2, Data: ucs2("Bahis kazancı şimdi")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bahis kazancı şimdi", msg.Body)
	assert.False(t, msg.ReceivedAt.IsZero())
}

func TestAssemble_Malformed(t *testing.T) {
	cases := map[string]Batch{
		"no sender":    {Sender: "  ", Fragments: []Fragment{{Data: []byte("x")}}},
		"no fragments": {Sender: "a"},
		"duplicate seq": {Sender: "a", Fragments: []Fragment{
			{Seq: 1, Data: []byte("x")}, {Seq: 1, Data: []byte("y")},
		}},
		"odd ucs2":    {Sender: "a", Fragments: []Fragment{{Encoding: EncodingUCS2, Data: []byte{0x00}}}},
		"bad utf8":    {Sender: "a", Fragments: []Fragment{{Data: []byte{0xff, 0xfe}}}},
		"unknown enc": {Sender: "a", Fragments: []Fragment{{Encoding: "gsm7", Data: []byte("x")}}},
		"blank body":  {Sender: "a", Fragments: []Fragment{{Data: []byte("   ")}}},
	}

	for name, batch := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Assemble(batch)
			assert.ErrorIs(t, err, core.ErrMalformedInput)
		})
	}
}

type fakeTriager struct {
	mu    sync.Mutex
	msgs  []core.InboundMessage
	panic bool
	block chan struct{}
}

func (f *fakeTriager) Triage(_ context.Context, msg core.InboundMessage) (core.TriageDecision, error) {
	if f.block != nil {
		<-f.block
	}
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return core.NormalDecision(true), nil
}

type countingCompletion struct{ n atomic.Int32 }

func (c *countingCompletion) Finish() { c.n.Add(1) }

func TestReceive_AcknowledgesBeforeTriageAndFinishesOnce(t *testing.T) {
	triager := &fakeTriager{block: make(chan struct{})}
	r := NewReceiver(triager, zap.NewNop())
	completion := &countingCompletion{}

	r.Receive(NewTextBatch("Mom", "dinner at 7?", at), completion)
	assert.Zero(t, completion.n.Load(), "finished before triage ran")

	close(triager.block)
	r.Wait()

	assert.Equal(t, int32(1), completion.n.Load())
	require.Len(t, triager.msgs, 1)
	assert.Equal(t, "dinner at 7?", triager.msgs[0].Body)
}

func TestReceive_IgnoredActionFinishesImmediately(t *testing.T) {
	triager := &fakeTriager{}
	r := NewReceiver(triager, zap.NewNop())
	completion := &countingCompletion{}

	batch := NewTextBatch("Mom", "dinner at 7?", at)
	batch.Action = "sms_delivered"
	r.Receive(batch, completion)

	assert.Equal(t, int32(1), completion.n.Load())
	r.Wait()
	assert.Empty(t, triager.msgs)
}

func TestReceive_MalformedAndPanicStillFinish(t *testing.T) {
	observed, logs := observer.New(zapcore.WarnLevel)
	triager := &fakeTriager{panic: true}
	r := NewReceiver(triager, zap.New(observed))

	malformed := &countingCompletion{}
	r.Receive(Batch{Action: ActionSMSReceived, Sender: "Mom"}, malformed)

	panicked := &countingCompletion{}
	r.Receive(NewTextBatch("Mom", "dinner at 7?", at), panicked)

	r.Wait()
	assert.Equal(t, int32(1), malformed.n.Load())
	assert.Equal(t, int32(1), panicked.n.Load())
	assert.Equal(t, 1, logs.FilterMessage("Dropping malformed batch").Len())
	assert.Equal(t, 1, logs.FilterMessage("Triage panicked").Len())
}
