package agent

import (
	"context"
	"testing"

	"financial_underwriting/pkg/core/config"
	"financial_underwriting/pkg/core/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	Name         string
	LastOptions  map[string]interface{}
	LastSystem   string
	ResponseFunc func(prompt string) (string, error)
}

func (m *MockProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	m.LastOptions = options
	m.LastSystem = systemPrompt
	if m.ResponseFunc != nil {
		return m.ResponseFunc(prompt)
	}
	return m.Name + ":" + prompt, nil
}

func (m *MockProvider) AdaptInstructions(raw string) string { return raw }

func TestManager_GetProvider(t *testing.T) {
	gemini := &MockProvider{Name: "gemini"}
	deepseek := &MockProvider{Name: "deepseek"}
	routing := config.AgentRouting{
		ActiveProvider: "gemini",
		Agents: map[string]config.AgentRouteCfg{
			Summarizer: {Provider: "deepseek"},
			GSTSummary: {Provider: "unregistered"},
		},
	}
	m := NewManager(routing, map[string]llm.Provider{"gemini": gemini, "deepseek": deepseek}, nil)

	p, err := m.GetProvider(Summarizer)
	require.NoError(t, err)
	assert.Same(t, deepseek, p)

	p, err = m.GetProvider(GSTSummary)
	require.NoError(t, err)
	assert.Same(t, gemini, p)

	p, err = m.GetProvider(Extractor)
	require.NoError(t, err)
	assert.Same(t, gemini, p)
}

func TestManager_NoProviders(t *testing.T) {
	m := NewManager(config.AgentRouting{ActiveProvider: "gemini"}, nil, nil)
	_, err := m.GetProvider(Summarizer)
	assert.Error(t, err)
}

func TestManager_ExecutePrompt_ModelOverride(t *testing.T) {
	gemini := &MockProvider{Name: "gemini"}
	routing := config.AgentRouting{
		ActiveProvider: "gemini",
		Agents:         map[string]config.AgentRouteCfg{GSTR3BSummary: {Model: "gemini-2.5-flash"}},
	}
	m := NewManager(routing, map[string]llm.Provider{"gemini": gemini}, nil)

	out, err := m.ExecutePrompt(context.Background(), GSTR3BSummary, "returns", "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini:returns", out)
	assert.Equal(t, "gemini-2.5-flash", gemini.LastOptions[llm.OptModel])
	assert.Equal(t, "sys", gemini.LastSystem)
}
