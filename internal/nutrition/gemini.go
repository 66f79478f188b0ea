package nutrition

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiAnalyzer runs the same food classification contract through Google's
// genai SDK. It is a single-model provider; the OpenAI analyzer owns the
// fallback chain.
type GeminiAnalyzer struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGeminiAnalyzer constructs a Gemini-backed analyzer.
func NewGeminiAnalyzer(apiKey, model string, timeout time.Duration) *GeminiAnalyzer {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiAnalyzer{apiKey: apiKey, model: model, timeout: timeout}
}

// Infer sends the image inline and demands a JSON-only reply.
func (g *GeminiAnalyzer) Infer(ctx context.Context, imageB64 string) (InferenceResult, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return InferenceResult{}, ErrNotConfigured
	}

	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return InferenceResult{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(childCtx, &genai.ClientConfig{
		APIKey: g.apiKey,
	})
	if err != nil {
		return InferenceResult{}, fmt.Errorf("create genai client: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(visionPrompt),
		genai.NewPartFromBytes(raw, "image/jpeg"),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](temperature),
		MaxOutputTokens:  maxReplyTokens,
		ResponseMIMEType: "application/json",
	}

	resp, err := client.Models.GenerateContent(childCtx, g.model, contents, cfg)
	if err != nil {
		if accessDenied(err) {
			return InferenceResult{}, fmt.Errorf("%w: %v", ErrModelAccess, err)
		}
		return InferenceResult{}, fmt.Errorf("vision inference: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return InferenceResult{}, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	return parseReply(text)
}
