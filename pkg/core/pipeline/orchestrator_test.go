package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_research/pkg/core/agent"
	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/llm"
	"valuation_research/pkg/core/search"
	"valuation_research/pkg/core/store"
)

// --- Mocks ---

type MockProvider struct {
	ChatFunc func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) llm.ChatResult
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) llm.ChatResult {
	return m.ChatFunc(ctx, messages, opts)
}

type MockProviders struct {
	Planner llm.Provider
	Analyst llm.Provider
}

func (m *MockProviders) GetProvider(agentType string) llm.Provider {
	if agentType == agent.AgentDeepAnalyst {
		return m.Analyst
	}
	return m.Planner
}

type MockRepository struct {
	SaveFunc   func(ctx context.Context, rep store.StoredReport) (string, error)
	LatestFunc func(ctx context.Context, symbol string) (*store.StoredReport, error)
}

func (m *MockRepository) Save(ctx context.Context, rep store.StoredReport) (string, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, rep)
	}
	return "report-1", nil
}

func (m *MockRepository) LatestBySymbol(ctx context.Context, symbol string) (*store.StoredReport, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, symbol)
	}
	return nil, store.ErrNotFound
}

func reply(content string) *MockProvider {
	return &MockProvider{ChatFunc: func(context.Context, []llm.Message, llm.ChatOptions) llm.ChatResult {
		return llm.ChatResult{Status: llm.StatusSuccess, Content: content}
	}}
}

const table = "\n| Metric | Value |\n| --- | --- |\n| Revenue | $94.0B |\n"

func structuredReport(t *testing.T) string {
	b, err := json.Marshal(map[string]string{
		"fundamentalAnalysis": "## 1.1 Overview" + table,
		"businessSegments":    "## 2.1 Segments" + table,
		"growthCatalysts":     "## 3.1 Catalysts" + table,
		"valuationAnalysis":   "## 4.1 DCF" + table,
	})
	require.NoError(t, err)
	return "```json\n" + string(b) + "\n```"
}

func okSearcher() search.Searcher {
	return search.SearcherFunc(func(_ context.Context, q string, _ search.Options) search.Result {
		return search.Result{Query: q, Content: "found " + q, Citations: []string{"https://news/1", "https://ir/" + q}, Status: search.StatusSuccess}
	})
}

func newTestOrchestrator(analyst llm.Provider, searcher search.Searcher) *Orchestrator {
	providers := &MockProviders{Planner: reply(`{"queries":["price","peers"]}`), Analyst: analyst}
	return NewOrchestrator(providers, searcher, nil, config.Default().Report, nil)
}

// --- Tests ---

func TestOrchestrator_Run(t *testing.T) {
	var saved store.StoredReport
	o := newTestOrchestrator(reply(structuredReport(t)), okSearcher())
	o.SetRepository(&MockRepository{SaveFunc: func(_ context.Context, rep store.StoredReport) (string, error) {
		saved = rep
		return "abc", nil
	}})

	out, err := o.Run(context.Background(), StockRequest{Symbol: "AAPL", Name: "Apple", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, "abc", out.ReportID)
	assert.Equal(t, "Apple (AAPL)", out.Company)
	assert.Equal(t, 2, out.SuccessCount)
	assert.Equal(t, 2, out.TotalQueries)
	assert.Equal(t, []string{"https://news/1", "https://ir/price", "https://ir/peers"}, out.Citations)
	assert.Contains(t, out.Sections["valuationAnalysis"], `<table class="metric-table">`)
	assert.Contains(t, out.Markdown, "# Apple (AAPL) 估值分析报告")
	assert.Empty(t, out.Format.Missing)
	assert.GreaterOrEqual(t, out.ElapsedMs, int64(0))

	assert.Equal(t, "AAPL", saved.Symbol)
	assert.Equal(t, "Apple", saved.CompanyName)
	assert.Equal(t, "u1", saved.UserID)
	require.NotNil(t, saved.Sections)
	assert.Equal(t, out.Citations, saved.Citations)
}

func TestOrchestrator_Run_SaveFailureIsNotFatal(t *testing.T) {
	o := newTestOrchestrator(reply(structuredReport(t)), okSearcher())
	o.SetRepository(&MockRepository{SaveFunc: func(context.Context, store.StoredReport) (string, error) {
		return "", errors.New("connection refused")
	}})

	out, err := o.Run(context.Background(), StockRequest{Symbol: "AAPL", Name: "Apple"})
	require.NoError(t, err)
	assert.Empty(t, out.ReportID)
}

func TestOrchestrator_Run_UnstructuredReportFails(t *testing.T) {
	o := newTestOrchestrator(reply("Just prose, no JSON."), okSearcher())
	_, err := o.Run(context.Background(), StockRequest{Symbol: "TSLA", Name: "Tesla"})
	require.Error(t, err)
	assert.Equal(t, "深度分析失败: 未知错误", err.Error())
}

func TestOrchestrator_Run_AnalystFailure(t *testing.T) {
	failing := &MockProvider{ChatFunc: func(context.Context, []llm.Message, llm.ChatOptions) llm.ChatResult {
		return llm.ChatResult{Status: llm.StatusError, Error: "API服务暂时不可用 (503): down"}
	}}
	o := newTestOrchestrator(failing, okSearcher())
	_, err := o.Run(context.Background(), StockRequest{Symbol: "TSLA", Name: "Tesla"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "深度分析失败: mock API调用失败: API服务暂时不可用 (503)")
}

func TestOrchestrator_Run_CollectionFailure(t *testing.T) {
	broken := search.SearcherFunc(func(context.Context, string, search.Options) search.Result {
		panic("boom")
	})
	o := newTestOrchestrator(reply(structuredReport(t)), broken)
	_, err := o.Run(context.Background(), StockRequest{Symbol: "TSLA"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "信息收集失败: 批量搜索失败"))
}

func TestOrchestrator_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(reply("x"), okSearcher())
	_, err := o.Run(context.Background(), StockRequest{Name: "Apple"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = o.Plan(context.Background(), StockRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOrchestrator_Plan(t *testing.T) {
	o := newTestOrchestrator(reply("x"), okSearcher())
	res, err := o.Plan(context.Background(), StockRequest{Symbol: "NVDA", Name: "NVIDIA"})
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA (NVDA)", res.Company)
	assert.Len(t, res.Plan.Queries, 2)
}

func TestOrchestrator_Summary(t *testing.T) {
	o := newTestOrchestrator(reply("- ✅ strong margins"), okSearcher())
	res, err := o.Summary(context.Background(), StockRequest{Symbol: "NVDA"})
	require.NoError(t, err)
	assert.Equal(t, "- ✅ strong margins", res.Report)
	assert.Equal(t, "NVDA", res.Company)
}

func TestOrchestrator_Latest(t *testing.T) {
	o := newTestOrchestrator(reply("x"), okSearcher())
	_, err := o.Latest(context.Background(), "AAPL")
	assert.Error(t, err)

	o.SetRepository(&MockRepository{LatestFunc: func(_ context.Context, symbol string) (*store.StoredReport, error) {
		return &store.StoredReport{ID: "r1", Symbol: symbol}, nil
	}})
	rep, err := o.Latest(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "r1", rep.ID)
}

func TestStockRequest_Subject(t *testing.T) {
	assert.Equal(t, "Tesla (TSLA)", StockRequest{Symbol: "TSLA", Name: "Tesla"}.Subject())
	assert.Equal(t, "TSLA", StockRequest{Symbol: "TSLA"}.Subject())
}

func TestBuild(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.PromptsDir = t.TempDir()

	setup, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer setup.Close()

	assert.Equal(t, []string{"deepseek", "qwen"}, setup.Manager.Available())
	assert.Equal(t, 3, setup.Prompts.Count())
	assert.Nil(t, setup.Orchestrator.repo)
	assert.IsType(t, &search.CachedSearcher{}, setup.Orchestrator.searcher)
}

func TestBuild_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	cfg.SearchBackend = "bing"
	_, err := Build(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown search backend")

	cfg.SearchBackend = "gemini"
	_, err = Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}
