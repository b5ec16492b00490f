package prompt

import "fmt"

// IDs lists the prompts the agents look up.
var IDs = struct {
	PlannerSearchPlan   string
	AnalystReport       string
	AnalystQuickSummary string
}{
	PlannerSearchPlan:   "planner.search_plan",
	AnalystReport:       "analyst.report",
	AnalystQuickSummary: "analyst.quick_summary",
}

// Render looks up id and renders both its system and user templates.
func (r *Registry) Render(id string, ctx *PromptExecutionContext) (system, user string, err error) {
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", "", err
	}
	system, err = RenderSystemPrompt(pt, ctx)
	if err != nil {
		return "", "", fmt.Errorf("render %s system prompt: %w", id, err)
	}
	user, err = RenderUserPrompt(pt, ctx)
	if err != nil {
		return "", "", fmt.Errorf("render %s user prompt: %w", id, err)
	}
	return system, user, nil
}
