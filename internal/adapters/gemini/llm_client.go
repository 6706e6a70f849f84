package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiModel loads a Gemini client for each classification
type GeminiModel struct {
	apiKey        string
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	labels        []string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiModel creates a new Gemini model loader
func NewGeminiModel(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	labels []string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GeminiModel {
	return &GeminiModel{
		apiKey:        apiKey,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		labels:        labels,
		logger:        logger.Named("gemini"),
		textProcessor: textProcessor,
	}
}

// Load opens a Gemini client. The caller must Close the returned handle.
func (m *GeminiModel) Load(ctx context.Context) (core.ModelHandle, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(m.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(m.modelName)
	model.SetTemperature(m.temperature)
	model.SetTopP(m.topP)
	model.SetMaxOutputTokens(int32(m.maxTokens))
	model.ResponseMIMEType = "application/json"

	return &handle{owner: m, client: client, model: model}, nil
}

type handle struct {
	owner  *GeminiModel
	client *genai.Client
	model  *genai.GenerativeModel
}

// Classify asks Gemini for label scores
func (h *handle) Classify(ctx context.Context, text string) (core.ClassificationResult, error) {
	if h.client == nil {
		return nil, fmt.Errorf("gemini handle closed")
	}
	m := h.owner

	prompt := utils.BuildClassificationPrompt(m.textProcessor.ProcessText(text, m.maxBodySize), m.labels)

	resp, err := h.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	m.logger.Debug("Gemini classification response", zap.String("content", responseText))

	return utils.ParseCategories(responseText)
}

// Close releases the Gemini client
func (h *handle) Close() error {
	if h.client == nil {
		return nil
	}
	err := h.client.Close()
	h.client = nil
	return err
}
