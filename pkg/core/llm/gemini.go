package llm

import (
	"context"
	"strings"

	"financial_underwriting/pkg/core/apperr"

	"google.golang.org/genai"
)

// ContentGenerator is the part of the GenAI client the provider uses;
// (*genai.Client).Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider implements Provider and FileExtractor for Google's Gemini models.
type GeminiProvider struct {
	models      ContentGenerator
	Model       string // e.g. "gemini-2.5-pro"
	Temperature float32
}

// Ensure interface compliance
var (
	_ Provider      = (*GeminiProvider)(nil)
	_ FileExtractor = (*GeminiProvider)(nil)
)

// NewGeminiProvider wraps a long-lived GenAI client.
func NewGeminiProvider(client *genai.Client, model string, temperature float32) *GeminiProvider {
	return NewGeminiProviderWith(client.Models, model, temperature)
}

// NewGeminiProviderWith builds a provider on any ContentGenerator.
func NewGeminiProviderWith(models ContentGenerator, model string, temperature float32) *GeminiProvider {
	if model == "" {
		model = "gemini-2.5-pro"
	}
	return &GeminiProvider{models: models, Model: model, Temperature: temperature}
}

// GenerateResponse sends a text-only generateContent request.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	config := p.config(systemPrompt, options)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	return p.generate(ctx, p.model(options), contents, config)
}

// ExtractFromFile asks the model to read a staged document. The instruction
// becomes the system instruction; the schema prompt follows the file part.
func (p *GeminiProvider) ExtractFromFile(ctx context.Context, instruction string, schemaPrompt string, file FileRef) (string, error) {
	if file.URI == "" {
		return "", apperr.Capability(nil, "gemini: staged file has no URI")
	}
	mime := file.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}
	config := p.config(instruction, map[string]interface{}{OptJSON: true})
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, mime),
			genai.NewPartFromText(schemaPrompt),
		}, genai.RoleUser),
	}
	return p.generate(ctx, p.Model, contents, config)
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}

func (p *GeminiProvider) model(options map[string]interface{}) string {
	if m := optString(options, OptModel); m != "" {
		return m
	}
	return p.Model
}

func (p *GeminiProvider) config(systemPrompt string, options map[string]interface{}) *genai.GenerateContentConfig {
	temperature := p.Temperature
	if t, ok := optFloat(options, OptTemperature); ok {
		temperature = float32(t)
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if optBool(options, OptJSON) {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	return config
}

func (p *GeminiProvider) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if p.models == nil {
		return "", apperr.Capability(nil, "gemini: client not configured")
	}
	result, err := p.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", apperr.Capability(err, "gemini generation failed")
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		reason := "empty response"
		if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
			reason = "empty response, finish reason " + string(result.Candidates[0].FinishReason)
		}
		return "", apperr.Capability(nil, "gemini: %s", reason)
	}
	return text, nil
}
