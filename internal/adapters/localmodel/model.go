package localmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/mikey/sms-guard/internal/core"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrClosed is returned when a closed model handle is used
var ErrClosed = errors.New("model handle closed")

// Asset is the on-disk format of a pretrained multinomial naive Bayes text model
type Asset struct {
	Language string   `json:"language"`
	Labels   []string `json:"labels"`
	// LogPriors holds one log prior per label
	LogPriors []float64 `json:"log_priors"`
	// Vocabulary maps a token to its per-label log likelihood
	Vocabulary map[string][]float64 `json:"vocabulary"`
	// Unknown is the per-label log likelihood of out-of-vocabulary tokens; omitted means skip them
	Unknown []float64 `json:"unknown,omitempty"`
}

// Validate checks the asset dimensions
func (a *Asset) Validate() error {
	n := len(a.Labels)
	if n == 0 {
		return fmt.Errorf("model has no labels")
	}
	if len(a.LogPriors) != n {
		return fmt.Errorf("model has %d labels but %d priors", n, len(a.LogPriors))
	}
	if a.Unknown != nil && len(a.Unknown) != n {
		return fmt.Errorf("model has %d labels but %d unknown-token weights", n, len(a.Unknown))
	}
	for token, weights := range a.Vocabulary {
		if len(weights) != n {
			return fmt.Errorf("token %q has %d weights, want %d", token, len(weights), n)
		}
	}
	return nil
}

// Loader loads the model asset from disk for every classify call
type Loader struct {
	path   string
	logger *zap.Logger
}

// NewLoader creates a new loader for the asset at path
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{
		path:   path,
		logger: logger.Named("localmodel"),
	}
}

// Load reads and validates the asset
func (l *Loader) Load(_ context.Context) (core.ModelHandle, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model asset: %w", err)
	}
	defer f.Close()

	var asset Asset
	if err := json.NewDecoder(f).Decode(&asset); err != nil {
		return nil, fmt.Errorf("failed to decode model asset: %w", err)
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model asset %s: %w", l.path, err)
	}

	l.logger.Debug("Loaded model asset",
		zap.String("path", l.path),
		zap.Strings("labels", asset.Labels),
		zap.Int("vocabulary_size", len(asset.Vocabulary)))

	return NewModel(&asset), nil
}

// Model is a loaded naive Bayes model
type Model struct {
	asset *Asset
	lower cases.Caser
}

// NewModel wraps a validated asset
func NewModel(asset *Asset) *Model {
	tag, err := language.Parse(asset.Language)
	if err != nil {
		tag = language.Und
	}
	return &Model{
		asset: asset,
		lower: cases.Lower(tag),
	}
}

// Classify returns the posterior probability of each label, in asset label order
func (m *Model) Classify(ctx context.Context, text string) (core.ClassificationResult, error) {
	if m.asset == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logits := make([]float64, len(m.asset.Labels))
	copy(logits, m.asset.LogPriors)

	for _, token := range m.tokenize(text) {
		weights, ok := m.asset.Vocabulary[token]
		if !ok {
			weights = m.asset.Unknown
		}
		for i := range weights {
			logits[i] += weights[i]
		}
	}

	probs := softmax(logits)
	result := make(core.ClassificationResult, len(probs))
	for i, p := range probs {
		result[i] = core.Category{Label: m.asset.Labels[i], Score: p}
	}
	return result, nil
}

// Close releases the asset
func (m *Model) Close() error {
	if m.asset == nil {
		return ErrClosed
	}
	m.asset = nil
	return nil
}

func (m *Model) tokenize(text string) []string {
	return strings.FieldsFunc(m.lower.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$'
	})
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
