package agent

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_research/pkg/core/search"
)

func planOf(queries ...ResearchQuery) *QueryPlanResult {
	return &QueryPlanResult{Status: StatusSuccess, Plan: &QueryPlan{Queries: queries}, Company: "Tesla (TSLA)"}
}

func threeQueries() *QueryPlanResult {
	return planOf(
		ResearchQuery{Query: "q1", Purpose: "price", Priority: PriorityHigh},
		ResearchQuery{Query: "q2", Purpose: "news", Priority: PriorityLow},
		ResearchQuery{Query: "q3", Purpose: "peers", Priority: PriorityMedium},
	)
}

func TestCollectInformation_PartialFailure(t *testing.T) {
	s := search.SearcherFunc(func(_ context.Context, q string, _ search.Options) search.Result {
		if q == "q2" {
			return search.Result{Query: q, Status: search.StatusError, Error: "查询超时: q2..."}
		}
		return search.Result{Query: q, Content: "content " + q, Citations: []string{"https://a/" + q}, Status: search.StatusSuccess}
	})

	res := NewInformationCollector(s, testReportConfig(), nil).CollectInformation(context.Background(), threeQueries())
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 3, res.TotalQueries)
	require.Len(t, res.Results, 3)

	assert.Equal(t, search.StatusSuccess, res.Results[0].Status)
	assert.Equal(t, search.StatusError, res.Results[1].Status)
	assert.Equal(t, search.StatusSuccess, res.Results[2].Status)

	assert.Equal(t, "news", res.Results[1].Purpose)
	assert.Equal(t, PriorityLow, res.Results[1].Priority)
	assert.Equal(t, "查询超时: q2...", res.Results[1].Error)
	assert.Equal(t, "peers", res.Results[2].Purpose)
	assert.Equal(t, "content q3", res.Results[2].Content)
}

func TestCollectInformation_AllFailedIsStillSuccess(t *testing.T) {
	s := search.SearcherFunc(func(_ context.Context, q string, _ search.Options) search.Result {
		return search.Result{Query: q, Status: search.StatusError}
	})

	res := NewInformationCollector(s, testReportConfig(), nil).CollectInformation(context.Background(), threeQueries())
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Zero(t, res.SuccessCount)
	assert.Len(t, res.Results, 3)
	assert.Equal(t, "未知错误", res.Results[0].Error)
}

func TestCollectInformation_InvalidPlan(t *testing.T) {
	var calls int32
	s := search.SearcherFunc(func(_ context.Context, q string, _ search.Options) search.Result {
		atomic.AddInt32(&calls, 1)
		return search.Result{Query: q, Status: search.StatusSuccess}
	})
	c := NewInformationCollector(s, testReportConfig(), nil)

	tests := []struct {
		name string
		plan *QueryPlanResult
		want string
	}{
		{"nil", nil, "查询计划格式错误: 期望对象，得到 nil"},
		{"error status", &QueryPlanResult{Status: StatusError}, "无效的查询计划"},
		{"no plan", &QueryPlanResult{Status: StatusSuccess}, "查询计划缺少必需字段"},
		{"no queries", &QueryPlanResult{Status: StatusSuccess, Plan: &QueryPlan{}}, "查询计划缺少必需字段"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.CollectInformation(context.Background(), tt.plan)
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, tt.want, res.Error)
		})
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCollectInformation_BatchFailure(t *testing.T) {
	s := search.SearcherFunc(func(context.Context, string, search.Options) search.Result {
		panic("transport exploded")
	})

	res := NewInformationCollector(s, testReportConfig(), nil).CollectInformation(context.Background(), threeQueries())
	assert.Equal(t, StatusError, res.Status)
	assert.True(t, strings.HasPrefix(res.Error, "批量搜索失败: "))
	assert.Empty(t, res.Results)
	assert.Equal(t, 3, res.TotalQueries)
	assert.Equal(t, "Tesla (TSLA)", res.Subject)
}

func collected() CollectionResult {
	return CollectionResult{
		Status:       StatusSuccess,
		Subject:      "Tesla (TSLA)",
		SuccessCount: 3,
		TotalQueries: 4,
		Results: []OrganizedResult{
			{Query: "low q", Purpose: "outlook", Priority: PriorityLow, Content: "low body", Status: search.StatusSuccess},
			{Query: "high q", Purpose: "price", Priority: PriorityHigh, Content: "high body", Citations: []string{"https://x", "https://y"}, Status: search.StatusSuccess},
			{Query: "failed q", Purpose: "broken", Priority: PriorityHigh, Status: search.StatusError, Error: "boom"},
			{Query: "mid q", Purpose: "peers", Priority: PriorityMedium, Content: "mid body", Citations: []string{"https://y", "https://z"}, Status: search.StatusSuccess},
		},
	}
}

func TestFormatForAnalysis(t *testing.T) {
	out := FormatForAnalysis(collected())

	assert.True(t, strings.HasPrefix(out, "# Tesla (TSLA) - 实时信息汇总\n\n"))
	assert.Contains(t, out, "成功查询: 3/4\n")
	assert.Contains(t, out, "### price\n查询: high q\n\nhigh body\n\n**引用来源:**\n1. https://x\n2. https://y\n\n---\n\n")
	assert.NotContains(t, out, "broken")

	high := strings.Index(out, "## 核心信息")
	mid := strings.Index(out, "## 重要信息")
	low := strings.Index(out, "## 补充信息")
	require.True(t, high >= 0 && mid >= 0 && low >= 0)
	assert.Less(t, high, mid)
	assert.Less(t, mid, low)
}

func TestFormatForAnalysis_Failed(t *testing.T) {
	assert.Equal(t, "信息收集失败", FormatForAnalysis(CollectionResult{Status: StatusError}))
}

func TestUniqueCitations(t *testing.T) {
	assert.Equal(t, []string{"https://x", "https://y", "https://z"}, UniqueCitations(collected()))
	assert.Empty(t, UniqueCitations(CollectionResult{}))
}
