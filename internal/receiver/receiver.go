package receiver

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/metrics"
	"go.uber.org/zap"
)

// Triager runs a message through the triage pipeline
type Triager interface {
	Triage(ctx context.Context, msg core.InboundMessage) (core.TriageDecision, error)
}

// Completion is signalled once the batch has been fully handled
type Completion interface {
	Finish()
}

// CompletionFunc adapts a function to Completion
type CompletionFunc func()

// Finish calls f
func (f CompletionFunc) Finish() { f() }

// Receiver is the inbound boundary. It acknowledges batches immediately and
// triages them on their own goroutine.
type Receiver struct {
	triager Triager
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewReceiver creates a new receiver
func NewReceiver(triager Triager, logger *zap.Logger) *Receiver {
	return &Receiver{
		triager: triager,
		logger:  logger.Named("receiver"),
	}
}

// Receive accepts a batch and returns at once. completion is finished exactly
// once, after triage ends, whatever the outcome.
func (r *Receiver) Receive(batch Batch, completion Completion) {
	done := newOnceCompletion(completion)

	if batch.Action != ActionSMSReceived {
		r.logger.Debug("Ignoring batch", zap.String("action", batch.Action))
		metrics.IncrementMessages("ignored")
		done.Finish()
		return
	}

	traceID := uuid.NewString()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer done.Finish()
		r.handle(batch, traceID)
	}()
}

// Wait blocks until all accepted batches have finished
func (r *Receiver) Wait() {
	r.wg.Wait()
}

func (r *Receiver) handle(batch Batch, traceID string) {
	logger := r.logger.With(zap.String("trace_id", traceID))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Triage panicked", zap.Any("panic", rec))
		}
	}()

	msg, err := Assemble(batch)
	if err != nil {
		logger.Warn("Dropping malformed batch", zap.Error(err))
		metrics.IncrementMessages("malformed")
		return
	}

	// Triage is never cancelled once started.
	ctx := context.Background()

	decision, err := r.triager.Triage(ctx, msg)
	if err != nil {
		if errors.Is(err, core.ErrMalformedInput) {
			logger.Warn("Triage rejected message", zap.Error(err))
			return
		}
		logger.Error("Triage failed", zap.Error(err))
		return
	}

	logger.Debug("Batch finished",
		zap.String("sender", msg.Sender),
		zap.Stringer("decision", decision),
		zap.Int("fragments", len(batch.Fragments)))
}

// onceCompletion makes Finish idempotent
type onceCompletion struct {
	once sync.Once
	c    Completion
}

func newOnceCompletion(c Completion) *onceCompletion {
	return &onceCompletion{c: c}
}

func (o *onceCompletion) Finish() {
	o.once.Do(func() {
		if o.c != nil {
			o.c.Finish()
		}
	})
}
