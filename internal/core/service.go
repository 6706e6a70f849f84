package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikey/sms-guard/internal/metrics"
	"go.uber.org/zap"
)

// presentation is a decision handed from the worker stage to the presentation stage
type presentation struct {
	ctx      context.Context
	msg      InboundMessage
	decision TriageDecision
	done     chan struct{}
}

// TriageService is the core message triage pipeline.
//
// Triage runs the worker stage (classification, decision, storage) on the
// caller's goroutine and hands the decision to a single presentation
// goroutine that performs the user-facing actions in arrival order.
type TriageService struct {
	classifier Classifier
	policy     *Policy
	sink       DeliverySink
	logger     *zap.Logger
	now        func() time.Time

	presentCh chan presentation
	quit      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewTriageService creates a new triage service and starts its presentation stage
func NewTriageService(
	classifier Classifier,
	policy *Policy,
	sink DeliverySink,
	logger *zap.Logger,
) *TriageService {
	s := &TriageService{
		classifier: classifier,
		policy:     policy,
		sink:       sink,
		logger:     logger.Named("triage"),
		now:        time.Now,
		presentCh:  make(chan presentation),
		quit:       make(chan struct{}),
	}

	s.wg.Add(1)
	go s.presentLoop()

	return s
}

// WithClock overrides the clock used for debounce and inbox timestamps
func (s *TriageService) WithClock(now func() time.Time) *TriageService {
	s.now = now
	return s
}

// Stop stops the presentation stage. Messages triaged afterwards are presented inline.
func (s *TriageService) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
	s.wg.Wait()
}

// Triage processes one message to completion and returns the decision taken.
// The only error returned is ErrMalformedInput; every other failure is logged
// and degraded.
func (s *TriageService) Triage(ctx context.Context, msg InboundMessage) (TriageDecision, error) {
	if strings.TrimSpace(msg.Sender) == "" || strings.TrimSpace(msg.Body) == "" {
		s.logger.Warn("Received message with empty sender or body, skipping")
		metrics.IncrementMessages("malformed")
		return TriageDecision{}, fmt.Errorf("%w: empty sender or body", ErrMalformedInput)
	}

	s.logger.Debug("Processing message",
		zap.String("sender", msg.Sender),
		zap.String("body", msg.Body))

	classification := s.classify(ctx, msg.Body)
	decision := s.policy.Decide(ctx, msg, classification, s.now())

	metrics.IncrementMessages("triaged")
	metrics.IncrementDecision(decision.Kind().String(), decision.FailOpen)

	if decision.Quarantine() {
		if _, err := s.sink.PersistQuarantine(ctx, msg); err != nil {
			s.logger.Error("Failed to quarantine spam message",
				zap.String("sender", msg.Sender),
				zap.Error(err))
		}
	} else if !decision.IsSpam() {
		if _, err := s.sink.PersistInbox(ctx, msg); err != nil {
			s.logger.Error("Failed to save message to inbox",
				zap.String("sender", msg.Sender),
				zap.Error(err))
		}
	}

	s.handOff(ctx, msg, decision)

	s.logger.Info("Triaged message",
		zap.String("sender", msg.Sender),
		zap.Stringer("decision", decision),
		zap.Bool("fail_open", decision.FailOpen))

	return decision, nil
}

// classify calls the classifier and turns a panic into a failure
func (s *TriageService) classify(ctx context.Context, text string) (c Classification) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c = Failed(FailurePanic, fmt.Errorf("%w: %v", ErrClassifierFailure, r))
		}
		metrics.RecordClassifyDuration(time.Since(start))
		if c.Failed() {
			metrics.IncrementClassifierFailure(string(c.Reason))
		}
	}()
	return s.classifier.Classify(ctx, text)
}

// handOff passes the decision to the presentation stage and waits until it is done
func (s *TriageService) handOff(ctx context.Context, msg InboundMessage, decision TriageDecision) {
	p := presentation{
		ctx:      ctx,
		msg:      msg,
		decision: decision,
		done:     make(chan struct{}),
	}

	select {
	case s.presentCh <- p:
		<-p.done
	case <-s.quit:
		s.logger.Warn("Presentation stage stopped, presenting inline", zap.String("sender", msg.Sender))
		s.present(ctx, msg, decision)
	}
}

func (s *TriageService) presentLoop() {
	defer s.wg.Done()
	for {
		select {
		case p := <-s.presentCh:
			s.present(p.ctx, p.msg, p.decision)
			close(p.done)
		case <-s.quit:
			return
		}
	}
}

// present performs the user-facing side effects of a decision
func (s *TriageService) present(ctx context.Context, msg InboundMessage, decision TriageDecision) {
	if decision.IsSpam() {
		// spam is announced to the application silently
		s.sink.EmitLiveEvent(ctx, msg)
		return
	}

	s.sink.PlayAlert(ctx)
	s.sink.EmitLiveEvent(ctx, msg)

	displayName := s.sink.DisplayName(ctx, msg.Sender)
	if displayName == "" {
		displayName = msg.Sender
	}

	if !decision.Notify() {
		s.logger.Debug("Skipping duplicate notification",
			zap.String("display_name", displayName))
		metrics.IncrementSuppressedNotification()
		return
	}

	if err := s.sink.NotifyUser(ctx, displayName, msg.Body); err != nil {
		s.logger.Warn("Notification not shown",
			zap.String("display_name", displayName),
			zap.Error(err))
	}
}
