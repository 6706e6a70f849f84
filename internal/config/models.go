package config

import (
	"fmt"
	"time"
)

// ClassifierConfig represents the configuration for the message classifier
type ClassifierConfig struct {
	Provider  string
	ModelPath string
	SpamLabel string
	HamLabel  string
	RateLimit float64
	Timeout   time.Duration
}

// Labels returns the labels the classifier is asked to score, spam first
func (c ClassifierConfig) Labels() []string {
	return []string{c.SpamLabel, c.HamLabel}
}

// DebounceConfig represents the configuration for the notification debounce cache
type DebounceConfig struct {
	Type   string
	Window time.Duration
}

// StoreConfig represents the configuration for the message store
type StoreConfig struct {
	Type        string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// DSN returns the data source name for the configured store type
func (s StoreConfig) DSN() (string, error) {
	switch s.Type {
	case "sqlite":
		return s.SQLitePath, nil
	case "mysql":
		return s.MySQLDSN, nil
	case "postgres":
		return s.PostgresDSN, nil
	default:
		return "", fmt.Errorf("unsupported store type: %s", s.Type)
	}
}

// NotificationsConfig represents the configuration for user notifications
type NotificationsConfig struct {
	Type              string
	PermissionGranted bool
	LongBodyThreshold int
	Sound             bool
}

// ListenerConfig represents a single inbound gateway
type ListenerConfig struct {
	Enabled       bool
	ListenAddress string
}

// GatewayConfig represents the configuration for the inbound gateways
type GatewayConfig struct {
	SMTP ListenerConfig
	HTTP ListenerConfig
}

// AMQPConfig represents the configuration for the AMQP live event listener
type AMQPConfig struct {
	Enabled    bool
	URL        string
	Exchange   string
	RoutingKey string
}

// EventsConfig represents the configuration for live events
type EventsConfig struct {
	AMQP AMQPConfig
}

// RedisConfig represents the configuration for Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig represents the configuration for outbound notification email
type SMTPConfig struct {
	Address  string
	From     string
	To       string
	Username string
	Password string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	timeout, err := c.GetDuration("classifier.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return ClassifierConfig{
		Provider:  c.GetString("classifier.provider"),
		ModelPath: c.GetString("classifier.model_path"),
		SpamLabel: c.GetString("classifier.spam_label"),
		HamLabel:  c.GetString("classifier.ham_label"),
		RateLimit: c.GetFloat64("classifier.rate_limit"),
		Timeout:   timeout,
	}
}

// GetDebounce returns the debounce configuration
func (c *Config) GetDebounce() (DebounceConfig, error) {
	window, err := c.GetDuration("debounce.window")
	if err != nil {
		return DebounceConfig{}, fmt.Errorf("invalid debounce window: %w", err)
	}
	return DebounceConfig{
		Type:   c.GetString("debounce.type"),
		Window: window,
	}, nil
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		SQLitePath:  c.GetString("store.sqlite_path"),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		PostgresDSN: c.GetString("store.postgres_dsn"),
	}
}

// GetNotifications returns the notification configuration
func (c *Config) GetNotifications() NotificationsConfig {
	return NotificationsConfig{
		Type:              c.GetString("notifications.type"),
		PermissionGranted: c.GetBool("notifications.permission_granted"),
		LongBodyThreshold: c.GetInt("notifications.long_body_threshold"),
		Sound:             c.GetBool("notifications.sound"),
	}
}

// GetGateway returns the inbound gateway configuration
func (c *Config) GetGateway() GatewayConfig {
	return GatewayConfig{
		SMTP: ListenerConfig{
			Enabled:       c.GetBool("gateway.smtp.enabled"),
			ListenAddress: c.GetString("gateway.smtp.listen_address"),
		},
		HTTP: ListenerConfig{
			Enabled:       c.GetBool("gateway.http.enabled"),
			ListenAddress: c.GetString("gateway.http.listen_address"),
		},
	}
}

// GetEvents returns the live event configuration
func (c *Config) GetEvents() EventsConfig {
	return EventsConfig{
		AMQP: AMQPConfig{
			Enabled:    c.GetBool("events.amqp.enabled"),
			URL:        c.GetString("events.amqp.url"),
			Exchange:   c.GetString("events.amqp.exchange"),
			RoutingKey: c.GetString("events.amqp.routing_key"),
		},
	}
}

// GetRedis returns the Redis configuration
func (c *Config) GetRedis() RedisConfig {
	return RedisConfig{
		Addr:     c.GetString("redis.addr"),
		Password: c.GetString("redis.password"),
		DB:       c.GetInt("redis.db"),
	}
}

// GetSMTP returns the outbound SMTP configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Address:  c.GetString("smtp.address"),
		From:     c.GetString("smtp.from"),
		To:       c.GetString("smtp.to"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
