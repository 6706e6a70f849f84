package gemini

import (
	"fmt"

	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiModel
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for GeminiModel instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateModel creates a new GeminiModel
func (f *Factory) CreateModel() (*GeminiModel, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return NewGeminiModel(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		geminiCfg.MaxBodySize,
		f.cfg.GetClassifier().Labels(),
		f.logger,
		f.textProcessor,
	), nil
}
