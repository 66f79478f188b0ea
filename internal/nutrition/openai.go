package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultVisionModel = "gpt-4o-mini"
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"

	maxReplyTokens = 500
	temperature    = 0.2
)

// OpenAIAnalyzer runs food classification through OpenAI's chat-completion
// endpoint, trying a primary model and falling back on access denial.
type OpenAIAnalyzer struct {
	apiKey  string
	project string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIAnalyzer constructs an analyzer using the provided credential.
// project may be empty; model defaults to gpt-4o-mini.
func NewOpenAIAnalyzer(apiKey, project, model string, timeout time.Duration) *OpenAIAnalyzer {
	if strings.TrimSpace(model) == "" {
		model = defaultVisionModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIAnalyzer{
		apiKey:  apiKey,
		project: project,
		model:   model,
		baseURL: openAIEndpoint,
		client:  &http.Client{Timeout: timeout},
	}
}

// Infer tries each candidate model in order, one request at a time.
// Access-denial failures move on to the next candidate; any other remote
// fault aborts immediately.
func (a *OpenAIAnalyzer) Infer(ctx context.Context, imageB64 string) (InferenceResult, error) {
	if strings.TrimSpace(a.apiKey) == "" {
		return InferenceResult{}, ErrNotConfigured
	}

	var lastErr error
	for _, model := range a.candidates() {
		text, err := a.complete(ctx, model, imageB64)
		if err != nil {
			if accessDenied(err) {
				lastErr = err
				continue
			}
			return InferenceResult{}, fmt.Errorf("vision inference: %w", err)
		}
		// A parse failure is not an access problem, so it is not retried.
		return parseReply(text)
	}

	if lastErr != nil {
		return InferenceResult{}, fmt.Errorf("%w: %v", ErrModelAccess, lastErr)
	}
	return InferenceResult{}, fmt.Errorf("%w: no candidate models", ErrModelAccess)
}

// candidates returns the ordered model trial list. When the configured
// primary already is gpt-4o the fallback shifts to gpt-4o-mini so the same
// model is not tried twice.
func (a *OpenAIAnalyzer) candidates() []string {
	if a.model != "gpt-4o" {
		return []string{a.model, "gpt-4o"}
	}
	return []string{"gpt-4o", "gpt-4o-mini"}
}

func (a *OpenAIAnalyzer) complete(ctx context.Context, model, imageB64 string) (string, error) {
	payload := map[string]any{
		"model":           model,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": "You are a nutrition assistant."},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": visionPrompt},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": "data:image/jpeg;base64," + imageB64,
						},
					},
				},
			},
		},
		"max_tokens":  maxReplyTokens,
		"temperature": temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if a.project != "" {
		req.Header.Set("OpenAI-Project", a.project)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, failure.Error.Message)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
