package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"valuation_research/pkg/core/config"
)

// NewGenAIClient builds a Gemini API client. baseURL is empty in production
// and points at a fake server in tests.
func NewGenAIClient(ctx context.Context, cfg config.ProviderConfig, baseURL string, hc *http.Client) (*genai.Client, error) {
	if !cfg.HasKey() {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// GeminiProvider implements Provider on top of the GenAI SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ Provider = (*GeminiProvider)(nil)

func NewGeminiProvider(client *genai.Client, model string, logger *zap.Logger) *GeminiProvider {
	if model == "" {
		model = config.DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiProvider{client: client, model: model, logger: logger}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, opts ChatOptions) ChatResult {
	if p.client == nil {
		return errorResult("gemini client not configured")
	}
	maxTokens := opts.maxTokens()
	timeout := ReasoningTimeout(maxTokens)

	reqCtx, cancel := context.WithTimeout(ctx, requestDeadline(timeout))
	defer cancel()

	system, contents := toGenAIContents(withSystemPrompt(messages, opts.SystemPrompt))
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.temperature())),
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := p.client.Models.GenerateContent(reqCtx, p.model, contents, cfg)
	if err != nil {
		p.logger.Warn("[LLM] gemini generation failed", zap.String("model", p.model), zap.Error(err))
		return errorResult(genAIErrorMessage(err, timeout.Seconds(), maxTokens))
	}
	if len(resp.Candidates) == 0 {
		return errorResult("API响应格式错误：缺少candidates")
	}

	result := ChatResult{Status: StatusSuccess, Content: resp.Text()}
	if u := resp.UsageMetadata; u != nil {
		result.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return result
}

// toGenAIContents splits system turns out into a single instruction and maps
// the remaining roles onto GenAI's user/model roles.
func toGenAIContents(messages []Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func genAIErrorMessage(err error, timeoutSeconds float64, maxTokens int) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutMessage(timeoutSeconds, maxTokens, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Status, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyStatus(apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message)
	}
	return err.Error()
}
