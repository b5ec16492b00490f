package llm

import (
	"context"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000

	// minTimeoutSeconds is the floor of the adaptive reasoning timeout.
	minTimeoutSeconds = 600
	// tokensPerSecond approximates reasoning-model throughput for timeout scaling.
	tokensPerSecond = 20
)

// Status is the outcome tag carried by every result value.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tune a single chat call. Zero values select the defaults.
type ChatOptions struct {
	Temperature  *float64
	MaxTokens    int
	SystemPrompt string
}

// Temp is a helper for filling ChatOptions.Temperature.
func Temp(v float64) *float64 { return &v }

func (o ChatOptions) temperature() float64 {
	if o.Temperature == nil {
		return DefaultTemperature
	}
	return *o.Temperature
}

func (o ChatOptions) maxTokens() int {
	if o.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return o.MaxTokens
}

// Usage mirrors the token accounting block of an OpenAI-compatible response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResult is the outcome of Provider.Chat. Content is meaningful when
// Status is success, Error when it is error.
type ChatResult struct {
	Status  Status `json:"status"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Usage   Usage  `json:"usage"`
}

func errorResult(msg string) ChatResult {
	return ChatResult{Status: StatusError, Error: msg}
}

// Provider is a reasoning backend. Chat never returns a Go error: transport,
// provider and structural failures are all reported through ChatResult.
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message, opts ChatOptions) ChatResult
}

// ReasoningTimeout scales the request budget with the completion size:
// max(600, maxTokens/20) seconds.
func ReasoningTimeout(maxTokens int) time.Duration {
	secs := maxTokens / tokensPerSecond
	if secs < minTimeoutSeconds {
		secs = minTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// requestDeadline maps a reasoning budget to the deadline actually applied.
// Tests shorten it; error messages always report the budget.
var requestDeadline = func(budget time.Duration) time.Duration { return budget }

// withSystemPrompt prepends the system turn when one is supplied.
func withSystemPrompt(messages []Message, systemPrompt string) []Message {
	if systemPrompt == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: systemPrompt})
	return append(out, messages...)
}
