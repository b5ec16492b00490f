package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"valuation_research/pkg/core/config"
)

// GroundedSearcher answers queries with Gemini plus the Google Search tool.
// Citations are the web URIs of the grounding chunks.
type GroundedSearcher struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ Searcher = (*GroundedSearcher)(nil)

func NewGroundedSearcher(client *genai.Client, model string, logger *zap.Logger) *GroundedSearcher {
	if model == "" {
		model = config.DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroundedSearcher{client: client, model: model, timeout: SonarTimeout, logger: logger}
}

func (g *GroundedSearcher) Search(ctx context.Context, query string, opts Options) Result {
	if g.client == nil {
		return errorResult(query, "异常: gemini client not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.temperature())),
		MaxOutputTokens: int32(opts.maxTokens()),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: sonarSystemPrompt}},
		},
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	resp, err := g.client.Models.GenerateContent(reqCtx, g.model, genai.Text(query), cfg)
	if err != nil {
		msg := "异常: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "查询超时: " + preview(query)
		}
		g.logger.Warn("[SEARCH] grounded query failed", zap.String("query", preview(query)), zap.Error(err))
		return errorResult(query, msg)
	}
	if len(resp.Candidates) == 0 {
		return errorResult(query, "API响应格式错误：缺少candidates")
	}

	content := resp.Text()
	if content == "" {
		return errorResult(query, "API响应格式错误：缺少content")
	}

	citations := []string{}
	if gm := resp.Candidates[0].GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
				citations = append(citations, chunk.Web.URI)
			}
		}
	}

	return Result{Query: query, Content: content, Citations: citations, Status: StatusSuccess}
}
