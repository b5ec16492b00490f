package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/httputil"
)

const (
	sonarSystemPrompt = "You are a precise research assistant. Provide factual, up-to-date information with sources."
	// SonarTimeout is fixed; search answers are short compared to reasoning output.
	SonarTimeout = 60 * time.Second
)

// SonarClient queries the Perplexity Sonar chat-completions endpoint.
type SonarClient struct {
	apiURL     string
	apiKey     string
	model      string
	maxRetries int
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Searcher = (*SonarClient)(nil)

type SonarOption func(*SonarClient)

func WithHTTPClient(hc *http.Client) SonarOption {
	return func(c *SonarClient) { c.httpClient = hc }
}

func WithLogger(l *zap.Logger) SonarOption {
	return func(c *SonarClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout overrides SonarTimeout. Only tests should need it.
func WithTimeout(d time.Duration) SonarOption {
	return func(c *SonarClient) { c.timeout = d }
}

func NewSonarClient(cfg config.ProviderConfig, opts ...SonarOption) *SonarClient {
	c := &SonarClient{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		timeout:    SonarTimeout,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	if c.apiURL == "" {
		c.apiURL = config.DefaultPerplexityURL
	}
	if c.model == "" {
		c.model = config.DefaultSonarModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sonarMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sonarRequest struct {
	Model       string         `json:"model"`
	Messages    []sonarMessage `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
}

// Citations may arrive at the top level or on the message, depending on the API version.
type sonarResponse struct {
	Choices []struct {
		Message struct {
			Content   string   `json:"content"`
			Citations []string `json:"citations"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Search runs one query. It never returns a Go error.
func (c *SonarClient) Search(ctx context.Context, query string, opts Options) Result {
	body, err := json.Marshal(sonarRequest{
		Model: c.model,
		Messages: []sonarMessage{
			{Role: "system", Content: sonarSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: opts.temperature(),
		MaxTokens:   opts.maxTokens(),
	})
	if err != nil {
		return errorResult(query, "异常: "+err.Error())
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return errorResult(query, "异常: "+err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(reqCtx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return c.fail(query, transportMessage(query, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		text := []rune(strings.TrimSpace(string(raw)))
		if len(text) > 200 {
			text = text[:200]
		}
		return c.fail(query, fmt.Sprintf("API错误 %d: %s", resp.StatusCode, string(text)))
	}

	var parsed sonarResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return c.fail(query, transportMessage(query, err))
	}
	if len(parsed.Choices) == 0 {
		return c.fail(query, "API响应格式错误：缺少choices")
	}

	msg := parsed.Choices[0].Message
	citations := parsed.Citations
	if citations == nil {
		citations = msg.Citations
	}
	if citations == nil {
		citations = []string{}
	}
	if msg.Content == "" {
		return c.fail(query, "API响应格式错误：缺少content")
	}

	return Result{Query: query, Content: msg.Content, Citations: citations, Status: StatusSuccess}
}

// BatchSearch runs queries in chunks of maxConcurrent; see the package-level BatchSearch.
func (c *SonarClient) BatchSearch(ctx context.Context, queries []string, maxConcurrent int) ([]Result, error) {
	return BatchSearch(ctx, c, queries, maxConcurrent)
}

func (c *SonarClient) fail(query, msg string) Result {
	c.logger.Warn("[SEARCH] query failed", zap.String("query", preview(query)), zap.String("error", msg))
	return errorResult(query, msg)
}

func transportMessage(query string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "查询超时: " + preview(query)
	}
	return "异常: " + err.Error()
}
