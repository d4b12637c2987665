// Package agent routes each named agent of the worker to an LLM provider
// according to config/models.yaml.
package agent

import (
	"context"
	"sort"

	"financial_underwriting/pkg/core/config"
	"financial_underwriting/pkg/core/llm"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Agent names used in config/models.yaml.
const (
	Extractor     = "extractor"
	Summarizer    = "summarizer"
	GSTSummary    = "gst_summary"
	GSTR3BSummary = "gstr3b_summary"
)

type Manager struct {
	config    config.AgentRouting
	providers map[string]llm.Provider
	log       *zap.Logger
}

// NewManager builds a manager over the registered providers, keyed by
// provider name ("gemini", "deepseek").
func NewManager(routing config.AgentRouting, providers map[string]llm.Provider, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{config: routing, providers: providers, log: log}
}

// GetProvider resolves the provider for an agent: the agent override when
// registered, else the active provider, else any registered provider.
func (m *Manager) GetProvider(agentType string) (llm.Provider, error) {
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p, nil
		}
		m.log.Warn("agent: override provider not registered, using active provider",
			zap.String("agent", agentType),
			zap.String("provider", agentConfig.Provider),
		)
	}

	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p, nil
	}

	names := m.ProviderNames()
	if len(names) == 0 {
		return nil, eris.Errorf("agent: no providers registered for %s", agentType)
	}
	return m.providers[names[0]], nil
}

// ProviderNames lists registered providers in sorted order.
func (m *Manager) ProviderNames() []string {
	names := make([]string, 0, len(m.providers))
	for k := range m.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ExecutePrompt handles instruction adaptation before sending to the model.
// A per-agent model override from the routing table is passed as an option.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	provider, err := m.GetProvider(agentType)
	if err != nil {
		return "", err
	}

	opts := make(map[string]interface{}, len(options)+1)
	for k, v := range options {
		opts[k] = v
	}
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Model != "" {
		if _, set := opts[llm.OptModel]; !set {
			opts[llm.OptModel] = agentConfig.Model
		}
	}

	m.log.Debug("agent: executing prompt", zap.String("agent", agentType))
	return provider.GenerateResponse(ctx, rawPrompt, provider.AdaptInstructions(rawSystemPrompt), opts)
}
