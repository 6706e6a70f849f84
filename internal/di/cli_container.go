package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Message flags
	Sender    string
	Body      string
	InputFile string

	// Classifier flags
	Provider  string
	ModelPath string
	SpamLabel string
	HamLabel  string

	// Gemini flags
	GeminiAPIKey string

	// OpenAI flags
	OpenAIAPIKey string

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags(args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet("sms-triage", flag.ContinueOnError)

	fs.StringVar(&flags.Sender, "sender", "", "Sender address of the message")
	fs.StringVar(&flags.Body, "body", "", "Message body (read from -file or stdin if empty)")
	fs.StringVar(&flags.InputFile, "file", "", "File containing the message body")

	fs.StringVar(&flags.Provider, "provider", "local", "Classifier provider (local, openai, gemini, bedrock)")
	fs.StringVar(&flags.ModelPath, "model", "model.json", "Path to the local model asset")
	fs.StringVar(&flags.SpamLabel, "spam-label", "BAHIS", "Label of the spam category")
	fs.StringVar(&flags.HamLabel, "ham-label", "DEĞIL", "Label of the legitimate category")

	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "", "Bedrock model ID")

	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to a config file to use instead of the classifier flags")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", flags.ConfigFile))
			return cfg, nil
		}

		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideTriage(container); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags.
// The one-shot CLI keeps its state in memory and only logs notifications.
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("classifier.provider", flags.Provider)
	v.Set("classifier.model_path", flags.ModelPath)
	v.Set("classifier.spam_label", flags.SpamLabel)
	v.Set("classifier.ham_label", flags.HamLabel)

	switch flags.Provider {
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		if flags.BedrockModelID != "" {
			v.Set("bedrock.model_id", flags.BedrockModelID)
		}
	}

	v.Set("debounce.type", "memory")
	v.Set("store.type", "sqlite")
	v.Set("store.sqlite_path", ":memory:")
	v.Set("notifications.type", "log")
	v.Set("notifications.sound", false)
	v.Set("events.amqp.enabled", false)

	return config.NewFromViper(v)
}
