package factory

import (
	"context"
	"fmt"

	"github.com/mikey/sms-guard/internal/adapters/bedrock"
	"github.com/mikey/sms-guard/internal/adapters/gemini"
	"github.com/mikey/sms-guard/internal/adapters/localmodel"
	"github.com/mikey/sms-guard/internal/adapters/openai"
	"github.com/mikey/sms-guard/internal/classifier"
	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/utils"
	"go.uber.org/zap"
)

// ClassifierFactory creates the message classifier
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateModelLoader creates the model loader for the configured provider
func (f *ClassifierFactory) CreateModelLoader(ctx context.Context) (core.ModelLoader, error) {
	classifierCfg := f.cfg.GetClassifier()

	switch classifierCfg.Provider {
	case "local":
		return localmodel.NewLoader(classifierCfg.ModelPath, f.logger), nil
	case "bedrock":
		model, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateModel(ctx)
		if err != nil {
			return nil, err
		}
		return model, nil
	case "gemini":
		model, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateModel()
		if err != nil {
			return nil, err
		}
		return model, nil
	case "openai":
		model, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateModel()
		if err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", classifierCfg.Provider)
	}
}

// CreateClassifier creates the classifier adapter around the configured model
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	loader, err := f.CreateModelLoader(context.Background())
	if err != nil {
		return nil, err
	}

	classifierCfg := f.cfg.GetClassifier()
	f.logger.Info("Classifier configured",
		zap.String("provider", classifierCfg.Provider),
		zap.Float64("rate_limit", classifierCfg.RateLimit))

	return classifier.NewAdapter(loader, classifier.Options{
		RateLimit: classifierCfg.RateLimit,
		Timeout:   classifierCfg.Timeout,
	}, f.logger), nil
}

// CreatePolicy creates the triage policy over the given debounce cache
func (f *ClassifierFactory) CreatePolicy(debounce core.DebounceCache) *core.Policy {
	classifierCfg := f.cfg.GetClassifier()
	return core.NewPolicy(classifierCfg.SpamLabel, classifierCfg.HamLabel, debounce, f.logger)
}
