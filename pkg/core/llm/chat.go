package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/httputil"
)

// errorBodyLimit caps how much of a failed response is read.
const errorBodyLimit = 64 * 1024

// ChatClient talks to any OpenAI-compatible /chat/completions endpoint.
type ChatClient struct {
	name       string
	apiURL     string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Provider = (*ChatClient)(nil)

// Option customizes a ChatClient.
type Option func(*ChatClient)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ChatClient) { c.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *ChatClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChatClient builds a client for the endpoint described by cfg.
// Request deadlines come from ReasoningTimeout, so the http.Client has none.
func NewChatClient(name string, cfg config.ProviderConfig, opts ...Option) *ChatClient {
	c := &ChatClient{
		name:       name,
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ChatClient) Name() string { return c.name }

func (c *ChatClient) Model() string { return c.model }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Chat sends one completion request. It never returns a Go error.
func (c *ChatClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) ChatResult {
	maxTokens := opts.maxTokens()
	timeout := ReasoningTimeout(maxTokens)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    withSystemPrompt(messages, opts.SystemPrompt),
		Temperature: opts.temperature(),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("marshal request: %v", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestDeadline(timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return errorResult(fmt.Sprintf("new request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("[LLM] chat request",
		zap.String("provider", c.name),
		zap.String("model", c.model),
		zap.Int("messages", len(messages)),
		zap.Int("max_tokens", maxTokens),
		zap.Duration("timeout", timeout),
	)

	resp, err := httputil.DoWithRetry(reqCtx, c.httpClient, req, c.maxRetries)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Warn("[LLM] chat stopped by caller", zap.String("provider", c.name), zap.Error(ctx.Err()))
			return errorResult(callerMessage(ctx, err))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("[LLM] chat timed out", zap.String("provider", c.name), zap.Duration("timeout", timeout))
			return errorResult(timeoutMessage(timeout.Seconds(), maxTokens, err))
		}
		c.logger.Warn("[LLM] chat transport failure", zap.String("provider", c.name), zap.Error(err))
		return errorResult(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		msg := classifyHTTPError(resp.StatusCode, raw)
		c.logger.Warn("[LLM] chat non-2xx", zap.String("provider", c.name), zap.Int("status", resp.StatusCode))
		return errorResult(msg)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if ctx.Err() != nil {
			return errorResult(callerMessage(ctx, err))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return errorResult(timeoutMessage(timeout.Seconds(), maxTokens, err))
		}
		return errorResult(fmt.Sprintf("API响应解析失败: %v", err))
	}
	if len(parsed.Choices) == 0 {
		return errorResult("API响应格式错误：缺少choices")
	}

	result := ChatResult{Status: StatusSuccess, Content: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		result.Usage = *parsed.Usage
	}
	return result
}

// classifyHTTPError turns a non-2xx response into a human-readable message.
func classifyHTTPError(status int, raw []byte) string {
	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Sprintf("API错误 %d: %s", status, Truncate(strings.TrimSpace(string(raw)), 200))
	}
	if body.Error == nil {
		return fmt.Sprintf("API错误 %d", status)
	}

	return classifyStatus(status, fmt.Sprint(body.Error.Code), body.Error.Message)
}

// classifyStatus maps a provider status and error code to a message.
func classifyStatus(status int, code, message string) string {
	switch {
	case status == http.StatusForbidden && strings.Contains(code, "insufficient_user_quota"):
		return "API额度不足: " + message + "\n\n" +
			"💡 可能的原因：\n" +
			"1. API计费可能有延迟，请稍后重试\n" +
			"2. 请检查API密钥是否正确\n" +
			"3. 请登录API服务商控制台查看实际余额\n\n" +
			"🔧 建议操作：\n" +
			"- 等待几分钟后重试\n" +
			"- 检查API服务商控制台的余额和账单"
	case status == http.StatusTooManyRequests:
		return fmt.Sprintf("API请求频率超限 (429): %s", message)
	case status >= 500:
		return fmt.Sprintf("API服务暂时不可用 (%d): %s", status, message)
	default:
		return fmt.Sprintf("API错误 %d: %s", status, message)
	}
}

// callerMessage describes a request cut short by the caller's context rather
// than by the reasoning timeout.
func callerMessage(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("调用方截止时间已到，请求被终止: %v", err)
	}
	return fmt.Sprintf("请求已被调用方取消: %v", err)
}

func timeoutMessage(seconds float64, maxTokens int, err error) string {
	return fmt.Sprintf("请求超时（%.0f秒）: %v\n\n", seconds, err) +
		"💡 可能的原因：\n" +
		fmt.Sprintf("1. 生成内容过长（max_tokens=%d），需要更长时间\n", maxTokens) +
		"2. API服务器响应较慢\n" +
		"3. 网络连接不稳定\n\n" +
		"🔧 建议操作：\n" +
		"- 尝试减少maxTokens参数\n" +
		"- 稍后重试"
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
