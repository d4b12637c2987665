package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"financial_underwriting/pkg/core/apperr"
)

const deepSeekURL = "https://api.deepseek.com/chat/completions"

// DeepSeekProvider talks to the OpenAI-compatible DeepSeek chat API.
type DeepSeekProvider struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

var _ Provider = (*DeepSeekProvider)(nil)

func NewDeepSeekProvider(apiKey string) *DeepSeekProvider {
	return &DeepSeekProvider{
		APIKey:     apiKey,
		Model:      "deepseek-chat",
		BaseURL:    deepSeekURL,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type DeepSeekRequest struct {
	Messages       []Message      `json:"messages"`
	Model          string         `json:"model"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat ResponseFormat `json:"response_format"`
	Stream         bool           `json:"stream"`
	Temperature    float64        `json:"temperature"`
}

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type DeepSeekResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *DeepSeekProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if p.APIKey == "" {
		return "", apperr.Capability(nil, "deepseek: DEEPSEEK_API_KEY not set")
	}

	model := p.Model
	if m := optString(options, OptModel); m != "" {
		model = m
	}
	temperature := 1.0
	if t, ok := optFloat(options, OptTemperature); ok {
		temperature = t
	}
	format := "text"
	if optBool(options, OptJSON) {
		format = "json_object"
	}

	messages := []Message{{Content: prompt, Role: "user"}}
	if systemPrompt != "" {
		messages = append([]Message{{Content: systemPrompt, Role: "system"}}, messages...)
	}

	jsonBytes, err := json.Marshal(DeepSeekRequest{
		Messages:       messages,
		Model:          model,
		MaxTokens:      4096,
		ResponseFormat: ResponseFormat{Type: format},
		Temperature:    temperature,
	})
	if err != nil {
		return "", apperr.Capability(err, "deepseek: marshal request")
	}

	url := p.BaseURL
	if url == "" {
		url = deepSeekURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", apperr.Capability(err, "deepseek: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return "", apperr.Capability(err, "deepseek: api call")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", apperr.Capability(err, "deepseek: read body")
	}
	if res.StatusCode != http.StatusOK {
		return "", apperr.Capability(nil, "deepseek: status=%d body=%s", res.StatusCode, apperr.Truncate(string(body), 256))
	}

	var response DeepSeekResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", apperr.Capability(err, "deepseek: decode response")
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", apperr.Capability(nil, "deepseek: no choices returned")
	}
	return response.Choices[0].Message.Content, nil
}

func (p *DeepSeekProvider) AdaptInstructions(raw string) string {
	return raw
}
