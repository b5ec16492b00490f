package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"valuation_research/pkg/core/agent"
	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/llm"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/prompt"
	"valuation_research/pkg/core/report"
	"valuation_research/pkg/core/search"
	"valuation_research/pkg/core/store"
)

// ErrInvalidRequest marks requests rejected before any stage runs.
var ErrInvalidRequest = errors.New("invalid request")

// ReportRepository persists finished reports.
type ReportRepository interface {
	Save(ctx context.Context, rep store.StoredReport) (string, error)
	LatestBySymbol(ctx context.Context, symbol string) (*store.StoredReport, error)
}

// ProviderSource resolves the reasoning provider for an agent type.
// *agent.Manager satisfies it.
type ProviderSource interface {
	GetProvider(agentType string) llm.Provider
}

// StockRequest identifies the company to research.
type StockRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Locale string `json:"locale,omitempty"`
	UserID string `json:"userId,omitempty"`
}

// Subject is the research subject handed to the agents, e.g. "Tesla (TSLA)".
func (r StockRequest) Subject() string {
	if strings.TrimSpace(r.Name) == "" {
		return r.Symbol
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.Symbol)
}

func (r StockRequest) validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	return nil
}

// ReportOutcome is a finished structured report.
type ReportOutcome struct {
	ReportID     string                `json:"reportId,omitempty"`
	Company      string                `json:"company"`
	Sections     map[string]string     `json:"sections"`
	ReportJSON   report.Sections       `json:"reportJson"`
	Markdown     string                `json:"markdown"`
	Citations    []string              `json:"citations"`
	Queries      []agent.ResearchQuery `json:"queries"`
	PlanNote     string                `json:"planNote,omitempty"`
	SuccessCount int                   `json:"successCount"`
	TotalQueries int                   `json:"totalQueries"`
	Format       report.FormatCheck    `json:"format"`
	ElapsedMs    int64                 `json:"elapsedMs"`
}

// Orchestrator runs plan, collect, analyze and render for one company.
type Orchestrator struct {
	providers ProviderSource
	searcher  search.Searcher
	prompts   *prompt.Registry
	cfg       config.ReportConfig
	repo      ReportRepository
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator. Providers are resolved on every
// run, so switching the active provider affects the next run.
func NewOrchestrator(providers ProviderSource, searcher search.Searcher, prompts *prompt.Registry, cfg config.ReportConfig, logger *zap.Logger) *Orchestrator {
	if prompts == nil {
		prompts = prompt.NewRegistry()
	}
	return &Orchestrator{
		providers: providers,
		searcher:  searcher,
		prompts:   prompts,
		cfg:       cfg,
		logger:    logging.OrNop(logger),
	}
}

// SetRepository allows injecting a custom repository (e.g., for testing).
func (o *Orchestrator) SetRepository(repo ReportRepository) {
	o.repo = repo
}

func (o *Orchestrator) planner() *agent.QueryPlanner {
	return agent.NewQueryPlanner(o.providers.GetProvider(agent.AgentQueryPlanner), o.cfg, o.prompts, o.logger)
}

func (o *Orchestrator) collector() *agent.InformationCollector {
	return agent.NewInformationCollector(o.searcher, o.cfg, o.logger)
}

func (o *Orchestrator) analyst() *agent.DeepAnalyst {
	return agent.NewDeepAnalyst(o.providers.GetProvider(agent.AgentDeepAnalyst), o.cfg, o.prompts, o.logger)
}

// Plan runs only the planning stage.
func (o *Orchestrator) Plan(ctx context.Context, req StockRequest) (agent.QueryPlanResult, error) {
	if err := req.validate(); err != nil {
		return agent.QueryPlanResult{}, err
	}
	return o.planner().GenerateSearchPlan(ctx, req.Subject(), agent.DefaultAnalysisType), nil
}

// Run executes the full report pipeline. A planning, collection or analysis
// failure, or a report that did not parse into sections, fails the run.
// Persistence failures are logged only.
func (o *Orchestrator) Run(ctx context.Context, req StockRequest) (*ReportOutcome, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	company := req.Subject()
	log := o.logger.With(zap.String("company", company))

	// 1. Plan
	log.Info("[PIPELINE] 阶段1: 查询规划")
	plan := o.planner().GenerateSearchPlan(ctx, company, agent.DefaultAnalysisType)
	if plan.Status != agent.StatusSuccess || plan.Plan == nil {
		return nil, errors.New("查询规划失败")
	}

	// 2. Collect
	log.Info("[PIPELINE] 阶段2: 信息收集", zap.Int("queries", len(plan.Plan.Queries)))
	collection := o.collector().CollectInformation(ctx, &plan)
	if collection.Status != agent.StatusSuccess {
		return nil, fmt.Errorf("信息收集失败: %s", collection.Error)
	}
	evidence := agent.FormatForAnalysis(collection)

	// 3. Analyze
	log.Info("[PIPELINE] 阶段3: 深度分析", zap.Int("evidenceChars", len(evidence)))
	analysis := o.analyst().GenerateValuationReport(ctx, company, evidence, agent.DefaultReportType)
	if analysis.Status != agent.StatusSuccess || analysis.ReportJSON == nil {
		msg := analysis.Error
		if msg == "" {
			msg = "未知错误"
		}
		return nil, fmt.Errorf("深度分析失败: %s", msg)
	}
	citations := agent.UniqueCitations(collection)

	// 4. Render
	html, err := report.RenderHTML(*analysis.ReportJSON)
	if err != nil {
		return nil, fmt.Errorf("格式转换失败: %w", err)
	}
	check := report.ValidateFormat(html)
	for _, w := range check.Warnings {
		log.Warn("[PIPELINE] " + w)
	}
	if len(check.Missing) > 0 {
		return nil, fmt.Errorf("missing required section: %s", check.Missing[0])
	}

	outcome := &ReportOutcome{
		Company:      company,
		Sections:     html,
		ReportJSON:   *analysis.ReportJSON,
		Markdown:     analysis.Report,
		Citations:    citations,
		Queries:      plan.Plan.Queries,
		PlanNote:     plan.Note,
		SuccessCount: collection.SuccessCount,
		TotalQueries: collection.TotalQueries,
		Format:       check,
	}

	// 5. Persist
	if o.repo != nil {
		id, err := o.repo.Save(ctx, store.StoredReport{
			UserID:      req.UserID,
			Symbol:      req.Symbol,
			CompanyName: req.Name,
			ReportType:  analysis.ReportType,
			Sections:    analysis.ReportJSON,
			Markdown:    analysis.Report,
			Citations:   citations,
		})
		if err != nil {
			log.Error("[PIPELINE] 保存报告到数据库时出错", zap.Error(err))
		} else {
			outcome.ReportID = id
		}
	}

	outcome.ElapsedMs = time.Since(start).Milliseconds()
	log.Info("[PIPELINE] 报告生成完成",
		zap.Int64("elapsedMs", outcome.ElapsedMs),
		zap.Int("citations", len(citations)),
		zap.Int("success", collection.SuccessCount),
		zap.Int("total", collection.TotalQueries))
	return outcome, nil
}

// Summary plans and collects, then produces the quick bullet summary.
func (o *Orchestrator) Summary(ctx context.Context, req StockRequest) (agent.ValuationReportResult, error) {
	if err := req.validate(); err != nil {
		return agent.ValuationReportResult{}, err
	}
	company := req.Subject()

	plan := o.planner().GenerateSearchPlan(ctx, company, agent.DefaultAnalysisType)
	collection := o.collector().CollectInformation(ctx, &plan)
	if collection.Status != agent.StatusSuccess {
		return agent.ValuationReportResult{}, fmt.Errorf("信息收集失败: %s", collection.Error)
	}

	res := o.analyst().GenerateQuickSummary(ctx, company, agent.FormatForAnalysis(collection))
	if res.Status != agent.StatusSuccess {
		return res, fmt.Errorf("摘要生成失败: %s", res.Error)
	}
	return res, nil
}

// Latest returns the newest stored report for symbol.
func (o *Orchestrator) Latest(ctx context.Context, symbol string) (*store.StoredReport, error) {
	if o.repo == nil {
		return nil, errors.New("report storage not configured")
	}
	return o.repo.LatestBySymbol(ctx, symbol)
}
