package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
)

// Item is a single detected food item with its estimated macros.
type Item struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// InferenceResult is the structured reply demanded from the vision model.
type InferenceResult struct {
	IsFood bool   `json:"is_food"`
	Items  []Item `json:"items"`
}

// Analyzer sends a normalized base64 image to a remote vision model and
// returns its structured classification.
type Analyzer interface {
	Infer(ctx context.Context, imageB64 string) (InferenceResult, error)
}

// visionPrompt pins the reply to a strict JSON schema so the aggregator can
// trust the shape.
const visionPrompt = `You are a nutrition expert. Look at the food photo and respond ONLY as strict JSON with this schema: ` +
	`{"is_food": true|false, "items": [{"name": string, "calories": integer, "protein": number, "carbs": number, "fat": number}]}`

// parseReply enforces the JSON contract on the model's raw text.
func parseReply(text string) (InferenceResult, error) {
	var result InferenceResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return InferenceResult{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return result, nil
}
