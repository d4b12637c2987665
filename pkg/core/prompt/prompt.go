// Package prompt provides the prompt library for LLM interactions.
// Prompts are defined in an embedded Hjson file and may be replaced at
// runtime by a file named in PROMPTS_FILE.
package prompt

// PromptTemplate represents a reusable prompt with metadata
type PromptTemplate struct {
	ID             string `json:"id"`                   // Unique identifier (e.g., "extraction.balance_sheet")
	Name           string `json:"name"`                 // Human-readable name
	Category       string `json:"category"`             // Category (extraction, summary)
	Description    string `json:"description"`          // Description of prompt purpose
	SystemPrompt   string `json:"system_prompt"`        // The system prompt content
	UserPromptTmpl string `json:"user_prompt_template"` // Go template for user prompt
	Version        string `json:"version"`              // Version for tracking changes
}

// Prompt IDs used by the worker.
const (
	ExtractionInstruction = "extraction.instruction"
	ExtractionCommonRules = "extraction.common_rules"
	ExtractionBalanceSheet = "extraction.balance_sheet"
	ExtractionProfitLoss  = "extraction.profit_and_loss"
	SummaryFinancial      = "summary.financial"
	SummaryGST            = "summary.gst"
	SummaryGSTR3B         = "summary.gstr3b"
)

// PromptExecutionContext holds runtime values for prompt execution
type PromptExecutionContext struct {
	Variables map[string]interface{} // Key-value pairs for template substitution
}

// NewContext creates a new execution context
func NewContext() *PromptExecutionContext {
	return &PromptExecutionContext{
		Variables: make(map[string]interface{}),
	}
}

// Set adds a variable to the context
func (c *PromptExecutionContext) Set(key string, value interface{}) *PromptExecutionContext {
	c.Variables[key] = value
	return c
}
