package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_research/pkg/core/llm"
	"valuation_research/pkg/core/report"
)

const fiveKeys = `{
  "fundamentalAnalysis": "## 1.1 Company Overview\nF body",
  "businessSegments": "## 2.1 Revenue\nB body",
  "growthCatalysts": "## 3.1 Tech\nG body",
  "valuationAnalysis": "## 4.1 DCF\nV body",
  "aiInsights": "🤖 **AI Deep Analysis Note**: A body"
}`

func TestGenerateValuationReport_Structured(t *testing.T) {
	mock := &MockProvider{ChatFunc: func(_ context.Context, messages []llm.Message, opts llm.ChatOptions) llm.ChatResult {
		assert.Contains(t, messages[0].Content, "Generate a comprehensive valuation report for: TSLA")
		assert.Contains(t, messages[0].Content, "evidence text")
		assert.Contains(t, opts.SystemPrompt, "CURRENCY UNITS")
		require.NotNil(t, opts.Temperature)
		assert.Equal(t, 0.7, *opts.Temperature)
		assert.Equal(t, 16000, opts.MaxTokens)
		return llm.ChatResult{Status: llm.StatusSuccess, Content: "```json\n" + fiveKeys + "\n```"}
	}}

	res := NewDeepAnalyst(mock, testReportConfig(), nil, nil).GenerateValuationReport(context.Background(), "TSLA", "evidence text", "")
	require.Equal(t, StatusSuccess, res.Status)
	require.True(t, res.Structured())
	assert.Equal(t, "comprehensive", res.ReportType)
	assert.Equal(t, "🤖 **AI Deep Analysis Note**: A body", res.ReportJSON.AIInsights)
	assert.Equal(t, "## 4.1 DCF\nV body", res.ReportJSON.ValuationAnalysis)
	assert.Contains(t, res.Report, "## 5.")

	order := []string{"F body", "B body", "G body", "V body", "A body"}
	last := -1
	for _, s := range order {
		idx := strings.Index(res.Report, s)
		require.Greater(t, idx, last, s)
		last = idx
	}
}

func TestGenerateValuationReport_FourKeys(t *testing.T) {
	raw := `{"fundamentalAnalysis":"F","businessSegments":"B","growthCatalysts":"G","valuationAnalysis":"V"}`
	res := NewDeepAnalyst(replying(raw), testReportConfig(), nil, nil).GenerateValuationReport(context.Background(), "AAPL", "e", "")
	require.True(t, res.Structured())
	assert.Equal(t, report.Sections{FundamentalAnalysis: "F", BusinessSegments: "B", GrowthCatalysts: "G", ValuationAnalysis: "V"}, *res.ReportJSON)
	assert.NotContains(t, res.Report, "## 5.")
}

func TestGenerateValuationReport_Degrades(t *testing.T) {
	cases := map[string]string{
		"prose":        "The company looks undervalued based on the data.",
		"missing keys": `{"fundamentalAnalysis":"F","valuationAnalysis":"V"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewDeepAnalyst(replying(raw), testReportConfig(), nil, nil).GenerateValuationReport(context.Background(), "AAPL", "e", "")
			assert.Equal(t, StatusSuccess, res.Status)
			assert.Equal(t, raw, res.Report)
			assert.Nil(t, res.ReportJSON)
			assert.Equal(t, "comprehensive", res.ReportType)
		})
	}
}

func TestGenerateValuationReport_ModelFailure(t *testing.T) {
	res := NewDeepAnalyst(failing("请求超时（800秒）"), testReportConfig(), nil, nil).GenerateValuationReport(context.Background(), "TSLA", "e", "")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "TSLA", res.Company)
	assert.Equal(t, "mock API调用失败: 请求超时（800秒）", res.Error)
	assert.Empty(t, res.Report)
	assert.Nil(t, res.ReportJSON)
}

func TestGenerateQuickSummary(t *testing.T) {
	mock := &MockProvider{ChatFunc: func(_ context.Context, messages []llm.Message, opts llm.ChatOptions) llm.ChatResult {
		assert.Contains(t, messages[0].Content, "为Apple生成投资要点总结")
		assert.Equal(t, 1000, opts.MaxTokens)
		return llm.ChatResult{Status: llm.StatusSuccess, Content: "- ✅ strong cash flow"}
	}}

	res := NewDeepAnalyst(mock, testReportConfig(), nil, nil).GenerateQuickSummary(context.Background(), "Apple", "evidence")
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "- ✅ strong cash flow", res.Report)
	assert.Equal(t, QuickSummaryType, res.ReportType)

	res = NewDeepAnalyst(failing("down"), testReportConfig(), nil, nil).GenerateQuickSummary(context.Background(), "Apple", "evidence")
	assert.Equal(t, StatusError, res.Status)
}
