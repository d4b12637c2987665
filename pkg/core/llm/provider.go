package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// FileRef points at a document already staged where the model can read it.
type FileRef struct {
	URI      string
	MIMEType string
}

// FileExtractor reads a staged document and answers with text, normally
// JSON shaped by the schema prompt.
type FileExtractor interface {
	ExtractFromFile(ctx context.Context, instruction string, schemaPrompt string, file FileRef) (string, error)
}

// Option keys understood by providers.
const (
	OptModel       = "model"
	OptJSON        = "json"
	OptTemperature = "temperature"
)

func optString(options map[string]interface{}, key string) string {
	if v, ok := options[key].(string); ok {
		return v
	}
	return ""
}

func optBool(options map[string]interface{}, key string) bool {
	v, _ := options[key].(bool)
	return v
}

func optFloat(options map[string]interface{}, key string) (float64, bool) {
	switch v := options[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	return 0, false
}
