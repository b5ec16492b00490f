// Package prompt provides the prompt library for the report agents.
// Built-in prompts are compiled in; JSON files loaded at runtime replace
// them by ID, so prompts can be tuned without code changes.
package prompt

// PromptTemplate represents a reusable prompt with metadata.
// SystemPrompt and UserPromptTmpl are both Go templates.
type PromptTemplate struct {
	ID             string           `json:"id"`                   // e.g. "planner.search_plan"
	Name           string           `json:"name"`                 // Human-readable name
	Category       string           `json:"category"`             // planner, analyst, ...
	Description    string           `json:"description"`          // Description of prompt purpose
	SystemPrompt   string           `json:"system_prompt"`        // The system prompt content
	UserPromptTmpl string           `json:"user_prompt_template"` // Go template for user prompt
	Variables      []PromptVariable `json:"variables"`            // Variables used in templates
	Version        string           `json:"version"`              // Version for tracking changes
}

// PromptVariable defines a variable used in a prompt template
type PromptVariable struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, int, float
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default"`
}

// PromptExecutionContext holds runtime values for prompt execution
type PromptExecutionContext struct {
	Variables map[string]interface{}
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
