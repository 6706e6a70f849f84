package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/utils"
	"go.uber.org/zap"
)

// InvokeClient is the subset of the Bedrock runtime client used here
type InvokeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockModel classifies messages with a model hosted on Amazon Bedrock
type BedrockModel struct {
	client        InvokeClient
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	labels        []string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockModel creates a new Bedrock model loader
func NewBedrockModel(
	client InvokeClient,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	labels []string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockModel {
	return &BedrockModel{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		labels:        labels,
		logger:        logger.Named("bedrock"),
		textProcessor: textProcessor,
	}
}

// Load returns a handle over the shared runtime client
func (m *BedrockModel) Load(_ context.Context) (core.ModelHandle, error) {
	return &handle{model: m}, nil
}

type handle struct {
	model  *BedrockModel
	closed bool
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

// Classify invokes the Bedrock model and parses the label scores
func (h *handle) Classify(ctx context.Context, text string) (core.ClassificationResult, error) {
	if h.closed {
		return nil, fmt.Errorf("bedrock handle closed")
	}
	m := h.model

	prompt := utils.BuildClassificationPrompt(m.textProcessor.ProcessText(text, m.maxBodySize), m.labels)

	payload, err := m.buildPayload(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := m.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(m.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := m.extractText(resp.Body)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Bedrock classification response",
		zap.String("model_id", m.modelID),
		zap.String("content", responseText))

	return utils.ParseCategories(responseText)
}

func (m *BedrockModel) buildPayload(prompt string) ([]byte, error) {
	switch {
	case m.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        m.maxTokens,
			"temperature":       m.temperature,
			"top_p":             m.topP,
			"messages": []map[string]interface{}{
				{"role": "user", "content": prompt},
			},
		})
	case m.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": m.maxTokens,
				"temperature":   m.temperature,
				"topP":          m.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  m.maxTokens,
			"temperature": m.temperature,
			"top_p":       m.topP,
		})
	}
}

func (m *BedrockModel) extractText(body []byte) (string, error) {
	switch {
	case m.isAnthropicModel():
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Anthropic response: %w", err)
		}
		for _, c := range claudeResp.Content {
			if c.Type == "text" {
				return c.Text, nil
			}
		}
		return "", fmt.Errorf("empty response from Anthropic model")
	case m.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		switch {
		case genericResp.Output != "":
			return genericResp.Output, nil
		case genericResp.Text != "":
			return genericResp.Text, nil
		case genericResp.Response != "":
			return genericResp.Response, nil
		}
		return string(body), nil
	}
}

func (m *BedrockModel) isAnthropicModel() bool {
	return strings.HasPrefix(m.modelID, "anthropic.claude")
}

func (m *BedrockModel) isAmazonTitanModel() bool {
	return strings.HasPrefix(m.modelID, "amazon.titan")
}
