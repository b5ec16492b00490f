package llm

import (
	"context"
	"fmt"
)

// PromptError is returned by SimplePrompt when the provider reports a failure
// or an empty completion.
type PromptError struct {
	Provider string
	Reason   string
}

func (e *PromptError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "未知错误"
	}
	return fmt.Sprintf("%s API调用失败: %s", e.Provider, reason)
}

// SimplePrompt sends prompt as a single user turn and returns the content.
// It is the one place where a ChatResult is turned into a Go error.
func SimplePrompt(ctx context.Context, p Provider, prompt string, opts ChatOptions) (string, error) {
	result := p.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts)
	if result.Status == StatusSuccess && result.Content != "" {
		return result.Content, nil
	}
	return "", &PromptError{Provider: p.Name(), Reason: result.Error}
}
