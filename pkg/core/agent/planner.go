package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/llm"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/prompt"
	"valuation_research/pkg/core/utils"
)

const (
	DefaultAnalysisType = "valuation"
	plannerTemperature  = 0.3
	fallbackNote        = "使用备用查询计划"
)

var errNoQueries = errors.New("响应中缺少'queries'字段")

// QueryPlanner turns a research subject into a prioritized list of search
// queries. It never fails: any problem yields the built-in fallback plan.
type QueryPlanner struct {
	provider   llm.Provider
	prompts    *prompt.Registry
	maxQueries int
	maxTokens  int
	logger     *zap.Logger
}

// NewQueryPlanner creates a planner. A nil registry uses the built-in prompts.
func NewQueryPlanner(provider llm.Provider, cfg config.ReportConfig, prompts *prompt.Registry, logger *zap.Logger) *QueryPlanner {
	if prompts == nil {
		prompts = prompt.NewRegistry()
	}
	maxQueries := cfg.MaxSonarQueries
	if maxQueries <= 0 {
		maxQueries = config.Default().Report.MaxSonarQueries
	}
	return &QueryPlanner{
		provider:   provider,
		prompts:    prompts,
		maxQueries: maxQueries,
		maxTokens:  cfg.QueryPlannerMaxTokens,
		logger:     logging.OrNop(logger),
	}
}

// GenerateSearchPlan asks the reasoning model for at most maxQueries queries
// about subject.
func (p *QueryPlanner) GenerateSearchPlan(ctx context.Context, subject, analysisType string) QueryPlanResult {
	if analysisType == "" {
		analysisType = DefaultAnalysisType
	}

	queries, err := p.plan(ctx, subject, analysisType)
	if err != nil {
		p.logger.Warn("[PLANNER] 查询规划失败", zap.String("subject", subject), zap.Error(err))
		p.logger.Info("[PLANNER] " + fallbackNote)
		return p.fallbackPlan(subject)
	}

	p.logger.Info("[PLANNER] 查询计划已生成", zap.String("subject", subject), zap.Int("queries", len(queries)))
	return QueryPlanResult{
		Status:  StatusSuccess,
		Plan:    &QueryPlan{Queries: queries, Subject: subject},
		Company: subject,
	}
}

func (p *QueryPlanner) plan(ctx context.Context, subject, analysisType string) ([]ResearchQuery, error) {
	vars := prompt.NewContext().
		Set("MaxQueries", p.maxQueries).
		Set("Subject", subject).
		Set("AnalysisType", analysisType)
	system, user, err := p.prompts.Render(prompt.IDs.PlannerSearchPlan, vars)
	if err != nil {
		return nil, err
	}

	raw, err := llm.SimplePrompt(ctx, p.provider, user, llm.ChatOptions{
		Temperature:  llm.Temp(plannerTemperature),
		MaxTokens:    p.maxTokens,
		SystemPrompt: system,
	})
	if err != nil {
		return nil, err
	}

	queries, err := parsePlan(raw, p.maxQueries)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, errors.New("查询计划为空")
	}
	return queries, nil
}

// parsePlan decodes the model's {"queries": [...]} answer. The list is cut
// to maxQueries before entries are normalized.
func parsePlan(raw string, maxQueries int) ([]ResearchQuery, error) {
	decoded := utils.DecodeLLMJSON[map[string]any](raw)
	fields, ok := decoded.Parsed()
	if !ok {
		return nil, fmt.Errorf("解析查询计划失败: %s", decoded.Reason)
	}
	// Repaired plans can splice brackets into query text; only strict JSON is trusted.
	if !decoded.Strict() {
		return nil, fmt.Errorf("解析查询计划失败: 非标准JSON (%s)", decoded.Tier)
	}

	items, ok := fields["queries"].([]any)
	if !ok {
		return nil, errNoQueries
	}
	if len(items) > maxQueries {
		items = items[:maxQueries]
	}

	queries := make([]ResearchQuery, 0, len(items))
	for i, item := range items {
		q, ok := normalizeQuery(i, item)
		if !ok {
			continue
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func normalizeQuery(i int, item any) (ResearchQuery, bool) {
	defaultPurpose := fmt.Sprintf("Query %d", i+1)

	switch v := item.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return ResearchQuery{}, false
		}
		return ResearchQuery{Query: v, Purpose: defaultPurpose, Priority: positionalPriority(i)}, true
	case map[string]any:
		query, _ := v["query"].(string)
		if strings.TrimSpace(query) == "" {
			return ResearchQuery{}, false
		}
		purpose, _ := v["purpose"].(string)
		if purpose == "" {
			purpose = defaultPurpose
		}
		priority, _ := v["priority"].(string)
		return ResearchQuery{Query: query, Purpose: purpose, Priority: ParsePriority(priority)}, true
	}
	return ResearchQuery{}, false
}

// fallbackPlan covers the mandatory categories with fixed English templates.
func (p *QueryPlanner) fallbackPlan(subject string) QueryPlanResult {
	queries := []ResearchQuery{
		{subject + " current stock price market cap market capitalization today latest", "股票当前价格和市值", PriorityHigh},
		{subject + " company background founding history management team executives leadership", "公司基本介绍（成立背景、团队）", PriorityHigh},
		{subject + " latest financial results revenue profit 2024 2025", "最新财务数据", PriorityHigh},
		{subject + " competitors competitive landscape strategic partnerships alliances", "竞争和合作关系", PriorityHigh},
		{subject + " secondary offering equity financing capital raise rights issue private placement convertible bonds fundraising round details", "最近的增发/股权融资/配股/可转债等融资事件及关键条款（日期、方式、价格、规模、用途）", PriorityHigh},
		{subject + " supply chain suppliers customers key relationships", "供应链关系", PriorityMedium},
		{subject + " PE ratio PS ratio PB ratio valuation metrics latest current as of today", "估值指标（截止今日最新数据）", PriorityHigh},
		{subject + " recent news major events announcements", "最新新闻", PriorityMedium},
		{subject + " growth forecast future outlook strategy", "增长预期", PriorityMedium},
	}
	if len(queries) > p.maxQueries {
		queries = queries[:p.maxQueries]
	}
	return QueryPlanResult{
		Status:  StatusSuccess,
		Plan:    &QueryPlan{Queries: queries, Subject: subject},
		Company: subject,
		Note:    fallbackNote,
	}
}
