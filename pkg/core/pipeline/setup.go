package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"valuation_research/pkg/core/agent"
	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/llm"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/prompt"
	"valuation_research/pkg/core/search"
	"valuation_research/pkg/core/store"
)

// Setup is everything a binary needs to serve reports.
type Setup struct {
	Orchestrator *Orchestrator
	Manager      *agent.Manager
	Prompts      *prompt.Registry
}

// Close releases the database pool if one was opened.
func (s *Setup) Close() {
	store.Close()
}

// Build wires the pipeline from cfg: prompt overrides, reasoning providers,
// the search backend with its cache, and report storage when a database is
// configured. A database that cannot be reached is logged and skipped.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Setup, error) {
	logger = logging.OrNop(logger)

	prompts := prompt.NewRegistry()
	n, err := prompt.LoadFromDirectory(prompts, cfg.PromptsDir)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		logger.Info("[PROMPT] loaded prompt overrides", zap.Int("count", n), zap.String("dir", cfg.PromptsDir))
	}

	providers, err := agent.ProvidersFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	manager := agent.NewManager(cfg.Agents, providers, logger)

	searcher, err := newSearcher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var repo ReportRepository
	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			logger.Warn("[STORE] database unavailable, reports will not be saved", zap.Error(err))
		} else {
			repo = store.NewReportRepo(store.GetPool())
		}
	}

	if cfg.Cache.Enabled {
		cache, err := store.NewSearchCache(store.GetPool(), cfg.Cache.Dir)
		if err != nil {
			return nil, err
		}
		maxAge := time.Duration(cfg.Cache.ExpiryHours) * time.Hour
		searcher = search.NewCachedSearcher(searcher, cache, maxAge, logger)
	}

	orch := NewOrchestrator(manager, searcher, prompts, cfg.Report, logger)
	if repo != nil {
		orch.SetRepository(repo)
	}
	return &Setup{Orchestrator: orch, Manager: manager, Prompts: prompts}, nil
}

func newSearcher(ctx context.Context, cfg config.Config, logger *zap.Logger) (search.Searcher, error) {
	switch cfg.SearchBackend {
	case "", "sonar":
		return search.NewSonarClient(cfg.Perplexity, search.WithLogger(logger)), nil
	case "gemini":
		client, err := llm.NewGenAIClient(ctx, cfg.Gemini, "", nil)
		if err != nil {
			return nil, fmt.Errorf("gemini search backend: %w", err)
		}
		return search.NewGroundedSearcher(client, cfg.Gemini.Model, logger), nil
	}
	return nil, fmt.Errorf("unknown search backend %q", cfg.SearchBackend)
}
