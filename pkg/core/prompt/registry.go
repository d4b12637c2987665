package prompt

import (
	"sort"
	"sync"

	"financial_underwriting/pkg/models"

	"github.com/rotisserie/eris"
)

// Registry holds all loaded prompts
type Registry struct {
	prompts map[string]*PromptTemplate
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{prompts: make(map[string]*PromptTemplate)}
}

// Register adds a prompt template to the registry
func (r *Registry) Register(pt *PromptTemplate) error {
	if pt.ID == "" {
		return eris.New("prompt ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts[pt.ID] = pt
	return nil
}

// GetPrompt retrieves a prompt by ID
func (r *Registry) GetPrompt(id string) (*PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.prompts[id]; ok {
		return p, nil
	}
	return nil, eris.Errorf("prompt not found: %s", id)
}

// GetSystemPrompt is a convenience method to get only the system prompt string
func (r *Registry) GetSystemPrompt(id string) (string, error) {
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", err
	}
	return pt.SystemPrompt, nil
}

// ListPrompts returns all registered prompt IDs in sorted order
func (r *Registry) ListPrompts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered prompts
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts)
}

// ExtractionPrompts returns the fixed JSON-only instruction and the
// rendered schema prompt for a document kind.
func (r *Registry) ExtractionPrompts(kind models.DocumentKind) (instruction string, schema string, err error) {
	instruction, err = r.GetSystemPrompt(ExtractionInstruction)
	if err != nil {
		return "", "", err
	}
	rules, err := r.GetSystemPrompt(ExtractionCommonRules)
	if err != nil {
		return "", "", err
	}

	var id string
	switch kind {
	case models.BalanceSheet:
		id = ExtractionBalanceSheet
	case models.ProfitAndLoss:
		id = ExtractionProfitLoss
	default:
		return "", "", eris.Errorf("no extraction prompt for document kind %q", kind)
	}
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", "", err
	}
	schema, err = RenderUserPrompt(pt, NewContext().Set("CommonRules", rules))
	if err != nil {
		return "", "", err
	}
	return instruction, schema, nil
}
