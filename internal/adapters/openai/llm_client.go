package openai

import (
	"context"
	"fmt"

	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatClient is the subset of the OpenAI client used for classification
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIModel classifies messages with an OpenAI chat model
type OpenAIModel struct {
	client        ChatClient
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	labels        []string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIModel creates a new OpenAI-backed model loader
func NewOpenAIModel(
	client ChatClient,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	labels []string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIModel {
	return &OpenAIModel{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		labels:        labels,
		logger:        logger.Named("openai"),
		textProcessor: textProcessor,
	}
}

// Load returns a handle bound to the shared HTTP client
func (m *OpenAIModel) Load(_ context.Context) (core.ModelHandle, error) {
	return &session{model: m}, nil
}

// session is a per-call handle; the HTTP client itself is shared
type session struct {
	model  *OpenAIModel
	closed bool
}

// Classify sends the message to OpenAI and parses the returned categories
func (s *session) Classify(ctx context.Context, text string) (core.ClassificationResult, error) {
	if s.closed {
		return nil, fmt.Errorf("openai session closed")
	}
	m := s.model

	prompt := utils.BuildClassificationPrompt(m.textProcessor.ProcessText(text, m.maxBodySize), m.labels)

	req := openai.ChatCompletionRequest{
		Model: m.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an SMS spam classifier. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
		TopP:        m.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	m.logger.Debug("OpenAI classification response",
		zap.String("id", resp.ID),
		zap.String("content", resp.Choices[0].Message.Content))

	return utils.ParseCategories(resp.Choices[0].Message.Content)
}

// Close ends the session
func (s *session) Close() error {
	s.closed = true
	return nil
}
