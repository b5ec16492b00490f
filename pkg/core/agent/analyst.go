package agent

import (
	"context"

	"go.uber.org/zap"

	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/llm"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/prompt"
	"valuation_research/pkg/core/report"
)

const (
	DefaultReportType = "comprehensive"
	QuickSummaryType  = "quick_summary"

	analystTemperature      = 0.7
	quickSummaryTemperature = 0.5
	quickSummaryMaxTokens   = 1000
)

// DeepAnalyst turns collected evidence into a valuation report.
type DeepAnalyst struct {
	provider  llm.Provider
	prompts   *prompt.Registry
	maxTokens int
	logger    *zap.Logger
}

// NewDeepAnalyst creates an analyst. A nil registry uses the built-in prompts.
func NewDeepAnalyst(provider llm.Provider, cfg config.ReportConfig, prompts *prompt.Registry, logger *zap.Logger) *DeepAnalyst {
	if prompts == nil {
		prompts = prompt.NewRegistry()
	}
	return &DeepAnalyst{
		provider:  provider,
		prompts:   prompts,
		maxTokens: cfg.DeepAnalysisMaxTokens,
		logger:    logging.OrNop(logger),
	}
}

// GenerateValuationReport asks for the five-section JSON report. Output that
// does not parse into sections is returned as-is with no ReportJSON; only a
// failed model call produces an error result.
func (a *DeepAnalyst) GenerateValuationReport(ctx context.Context, company, evidence, reportType string) ValuationReportResult {
	if reportType == "" {
		reportType = DefaultReportType
	}

	vars := prompt.NewContext().
		Set("Company", company).
		Set("Evidence", evidence).
		Set("ReportType", reportType)
	system, user, err := a.prompts.Render(prompt.IDs.AnalystReport, vars)
	if err != nil {
		return ValuationReportResult{Status: StatusError, Company: company, Error: err.Error()}
	}

	a.logger.Info("[ANALYST] 正在生成深度分析报告", zap.String("company", company), zap.Int("maxTokens", a.maxTokens))
	raw, err := llm.SimplePrompt(ctx, a.provider, user, llm.ChatOptions{
		Temperature:  llm.Temp(analystTemperature),
		MaxTokens:    a.maxTokens,
		SystemPrompt: system,
	})
	if err != nil {
		a.logger.Error("[ANALYST] 报告生成失败", zap.String("company", company), zap.Error(err))
		return ValuationReportResult{Status: StatusError, Company: company, Error: err.Error()}
	}
	a.logger.Info("[ANALYST] 报告生成完成", zap.Int("chars", len(raw)))

	sections, err := report.ParseSections(raw)
	if err != nil {
		a.logger.Warn("[ANALYST] JSON解析失败，返回原始报告", zap.Error(err))
		return ValuationReportResult{Status: StatusSuccess, Company: company, Report: raw, ReportType: reportType}
	}

	return ValuationReportResult{
		Status:     StatusSuccess,
		Company:    company,
		Report:     report.Assemble(company, sections),
		ReportJSON: &sections,
		ReportType: reportType,
	}
}

// GenerateQuickSummary asks for a short bullet summary of the evidence.
func (a *DeepAnalyst) GenerateQuickSummary(ctx context.Context, company, evidence string) ValuationReportResult {
	vars := prompt.NewContext().Set("Company", company).Set("Evidence", evidence)
	system, user, err := a.prompts.Render(prompt.IDs.AnalystQuickSummary, vars)
	if err != nil {
		return ValuationReportResult{Status: StatusError, Company: company, Error: err.Error()}
	}

	raw, err := llm.SimplePrompt(ctx, a.provider, user, llm.ChatOptions{
		Temperature:  llm.Temp(quickSummaryTemperature),
		MaxTokens:    quickSummaryMaxTokens,
		SystemPrompt: system,
	})
	if err != nil {
		return ValuationReportResult{Status: StatusError, Company: company, Error: err.Error()}
	}
	return ValuationReportResult{Status: StatusSuccess, Company: company, Report: raw, ReportType: QuickSummaryType}
}
