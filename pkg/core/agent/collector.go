package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/search"
)

var priorityLabels = map[Priority]string{
	PriorityHigh:   "核心信息",
	PriorityMedium: "重要信息",
	PriorityLow:    "补充信息",
}

// InformationCollector runs a query plan against a Searcher.
type InformationCollector struct {
	searcher      search.Searcher
	maxConcurrent int
	logger        *zap.Logger
}

func NewInformationCollector(searcher search.Searcher, cfg config.ReportConfig, logger *zap.Logger) *InformationCollector {
	return &InformationCollector{
		searcher:      searcher,
		maxConcurrent: cfg.MaxConcurrentSearches,
		logger:        logging.OrNop(logger),
	}
}

// CollectInformation searches every planned query. Failed queries are
// recorded per entry; only a batch failure turns the whole result into an
// error. An invalid plan is rejected before anything is searched.
func (c *InformationCollector) CollectInformation(ctx context.Context, plan *QueryPlanResult) CollectionResult {
	if plan == nil {
		return CollectionResult{Status: StatusError, Error: "查询计划格式错误: 期望对象，得到 nil"}
	}
	if plan.Status != StatusSuccess {
		return CollectionResult{Status: StatusError, Error: "无效的查询计划"}
	}
	if plan.Plan == nil || plan.Plan.Queries == nil {
		return CollectionResult{Status: StatusError, Error: "查询计划缺少必需字段"}
	}

	queries := plan.Plan.Queries
	queryStrings := make([]string, len(queries))
	for i, q := range queries {
		queryStrings[i] = q.Query
	}

	c.logger.Info("[COLLECTOR] 开始并行搜索", zap.Int("queries", len(queryStrings)), zap.Int("maxConcurrent", c.maxConcurrent))

	results, err := search.BatchSearch(ctx, c.searcher, queryStrings, c.maxConcurrent)
	if err != nil {
		c.logger.Error("[COLLECTOR] 批量搜索异常", zap.Error(err))
		c.logHints()
		return CollectionResult{
			Status:       StatusError,
			Subject:      plan.Company,
			Error:        fmt.Sprintf("批量搜索失败: %v", err),
			Results:      []OrganizedResult{},
			TotalQueries: len(queryStrings),
		}
	}

	organized := make([]OrganizedResult, len(results))
	successCount := 0
	for i, r := range results {
		info := queries[i]
		query := r.Query
		if query == "" {
			query = info.Query
		}

		entry := OrganizedResult{Query: query, Purpose: info.Purpose, Priority: info.Priority}
		if r.OK() {
			entry.Status = search.StatusSuccess
			entry.Content = r.Content
			entry.Citations = r.Citations
			if entry.Citations == nil {
				entry.Citations = []string{}
			}
			successCount++
		} else {
			entry.Status = search.StatusError
			entry.Error = r.Error
			if entry.Error == "" {
				entry.Error = "未知错误"
			}
			c.logger.Warn("[COLLECTOR] 查询失败", zap.String("query", truncateQuery(info.Query)), zap.String("error", entry.Error))
		}
		organized[i] = entry
	}

	c.logger.Info("[COLLECTOR] 搜索完成", zap.Int("success", successCount), zap.Int("total", len(queryStrings)))
	if successCount == 0 && len(queryStrings) > 0 {
		c.logger.Warn("[COLLECTOR] 所有查询都失败了")
		c.logHints()
	}

	return CollectionResult{
		Status:       StatusSuccess,
		Subject:      plan.Company,
		Results:      organized,
		SuccessCount: successCount,
		TotalQueries: len(queryStrings),
	}
}

func (c *InformationCollector) logHints() {
	c.logger.Warn("[COLLECTOR] 可能的原因: API Key无效或过期; 网络连接问题; API限制或配额用完",
		zap.String("check", "PERPLEXITY_API_KEY, 网络连接, API 账户状态"))
}

func truncateQuery(q string) string {
	r := []rune(q)
	if len(r) <= 50 {
		return q
	}
	return string(r[:50]) + "..."
}

// FormatForAnalysis renders the successful entries as one evidence document,
// grouped high, medium, then low priority.
func FormatForAnalysis(res CollectionResult) string {
	if res.Status != StatusSuccess {
		return "信息收集失败"
	}

	subject := res.Subject
	if subject == "" {
		subject = "Unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s - 实时信息汇总\n\n", subject)
	b.WriteString("收集时间: 当前\n")
	fmt.Fprintf(&b, "成功查询: %d/%d\n\n", res.SuccessCount, res.TotalQueries)

	for _, tier := range Priorities {
		var entries []OrganizedResult
		for _, r := range res.Results {
			if r.Priority == tier && r.Status == search.StatusSuccess {
				entries = append(entries, r)
			}
		}
		if len(entries) == 0 {
			continue
		}

		fmt.Fprintf(&b, "## %s\n\n", priorityLabels[tier])
		for _, r := range entries {
			fmt.Fprintf(&b, "### %s\n", r.Purpose)
			fmt.Fprintf(&b, "查询: %s\n\n", r.Query)
			fmt.Fprintf(&b, "%s\n\n", r.Content)
			if len(r.Citations) > 0 {
				b.WriteString("**引用来源:**\n")
				for i, c := range r.Citations {
					fmt.Fprintf(&b, "%d. %s\n", i+1, c)
				}
				b.WriteString("\n")
			}
			b.WriteString("---\n\n")
		}
	}
	return b.String()
}

// UniqueCitations returns the citations of successful entries without
// duplicates, in first-seen order.
func UniqueCitations(res CollectionResult) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range res.Results {
		if r.Status != search.StatusSuccess {
			continue
		}
		for _, c := range r.Citations {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
