package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/sms-guard/internal/core"
)

const promptFormat = `You are an SMS spam classifier. Classify the following text message.
Respond with a JSON object containing:
- categories: array of objects with "label" and "score", one for each of these labels: %s
  Scores are probabilities between 0 and 1 and must sum to 1.

Message:
%s

Respond only with the JSON object and nothing else.`

// BuildClassificationPrompt formats the classifier prompt for a message
func BuildClassificationPrompt(text string, labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return fmt.Sprintf(promptFormat, strings.Join(quoted, ", "), text)
}

// classificationResponse is the structured response expected from a remote model
type classificationResponse struct {
	Categories []core.Category `json:"categories"`
}

// ParseCategories extracts the category list from a model response.
// Text around the outermost JSON object is ignored.
func ParseCategories(responseText string) (core.ClassificationResult, error) {
	var resp classificationResponse
	if err := json.Unmarshal([]byte(responseText), &resp); err == nil {
		return resp.Categories, nil
	}

	start := strings.IndexByte(responseText, '{')
	end := strings.LastIndexByte(responseText, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("failed to extract JSON from model response")
	}

	if err := json.Unmarshal([]byte(responseText[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return resp.Categories, nil
}
