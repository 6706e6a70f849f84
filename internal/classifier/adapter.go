package classifier

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mikey/sms-guard/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures an Adapter
type Options struct {
	// RateLimit caps model loads per second; zero disables the limit
	RateLimit float64
	// Timeout bounds a single classify call; zero means no timeout
	Timeout time.Duration
}

// Adapter implements core.Classifier on top of a ModelLoader.
// A model handle is loaded for every call and closed on every exit path.
type Adapter struct {
	loader  core.ModelLoader
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewAdapter creates a new classifier adapter
func NewAdapter(loader core.ModelLoader, opts Options, logger *zap.Logger) *Adapter {
	a := &Adapter{
		loader:  loader,
		timeout: opts.Timeout,
		logger:  logger.Named("classifier"),
	}
	if opts.RateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return a
}

// Classify runs the model on text. It never panics: every failure is
// returned as a failed core.Classification.
func (a *Adapter) Classify(ctx context.Context, text string) (c core.Classification) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Classifier panicked", zap.Any("panic", r))
			c = core.Failed(core.FailurePanic, fmt.Errorf("%w: panic: %v", core.ErrClassifierFailure, r))
		}
	}()

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			a.logger.Error("Classifier rate limit wait failed", zap.Error(err))
			return core.Failed(core.FailureRateLimit, fmt.Errorf("%w: %v", core.ErrClassifierFailure, err))
		}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	handle, err := a.loader.Load(ctx)
	if err != nil {
		a.logger.Error("Failed to load classifier model", zap.Error(err))
		return core.Failed(core.FailureMissingModel, fmt.Errorf("%w: failed to load model: %v", core.ErrClassifierFailure, err))
	}
	defer func() {
		if err := handle.Close(); err != nil {
			a.logger.Warn("Failed to release classifier model", zap.Error(err))
		}
	}()

	result, err := handle.Classify(ctx, text)
	if err != nil {
		a.logger.Error("Text classification failed", zap.Error(err))
		return core.Failed(core.FailureInference, fmt.Errorf("%w: %v", core.ErrClassifierFailure, err))
	}

	if err := validate(result); err != nil {
		a.logger.Error("Classifier returned an invalid result", zap.Error(err))
		return core.Failed(core.FailureParse, fmt.Errorf("%w: %v", core.ErrClassifierFailure, err))
	}

	if len(result) == 0 {
		a.logger.Warn("Classifier returned no categories")
	} else {
		a.logger.Debug("Classification successful", zap.Any("categories", result))
	}

	return core.Succeeded(result)
}

// validate rejects scores outside [0,1]
func validate(result core.ClassificationResult) error {
	for _, category := range result {
		if math.IsNaN(category.Score) || category.Score < 0 || category.Score > 1 {
			return fmt.Errorf("score %v for label %q is outside [0,1]", category.Score, category.Label)
		}
	}
	return nil
}
