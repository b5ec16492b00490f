package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"valuation_research/pkg/core/config"
	"valuation_research/pkg/core/llm"
	"valuation_research/pkg/core/logging"
)

// Agent types that can be routed to their own provider.
const (
	AgentQueryPlanner = "query_planner"
	AgentDeepAnalyst  = "deep_analyst"
)

const fallbackProvider = "qwen"

// Manager routes each agent to a reasoning provider. The active provider can
// be switched at runtime; a switch affects runs started afterwards.
type Manager struct {
	mu        sync.RWMutex
	config    config.AgentsConfig
	providers map[string]llm.Provider
	logger    *zap.Logger
}

func NewManager(cfg config.AgentsConfig, providers map[string]llm.Provider, logger *zap.Logger) *Manager {
	return &Manager{
		config:    cfg,
		providers: providers,
		logger:    logging.OrNop(logger),
	}
}

// ProvidersFromConfig builds every provider the configuration can support.
// The OpenAI-compatible providers are always built; Gemini only with a key.
func ProvidersFromConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) (map[string]llm.Provider, error) {
	providers := map[string]llm.Provider{
		"qwen":     llm.NewQwenClient(cfg.Qwen, llm.WithLogger(logger)),
		"deepseek": llm.NewDeepSeekClient(cfg.DeepSeek, llm.WithLogger(logger)),
	}
	if cfg.Gemini.HasKey() {
		client, err := llm.NewGenAIClient(ctx, cfg.Gemini, "", nil)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		providers["gemini"] = llm.NewGeminiProvider(client, cfg.Gemini.Model, logger)
	}
	return providers, nil
}

// GetProvider resolves agentType: its own override first, then the active
// provider, then qwen.
func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 1. Check for agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
		m.logger.Warn("[AGENT] override provider not available", zap.String("agent", agentType), zap.String("provider", agentConfig.Provider))
	}

	// 2. Use global active provider
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}

	// 3. Fallback
	return m.providers[fallbackProvider]
}

// GetProviderByName returns the named provider or nil.
func (m *Manager) GetProviderByName(name string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[name]
}

func (m *Manager) SetGlobalProvider(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	m.config.ActiveProvider = name
	m.logger.Info("[AGENT] global provider set", zap.String("provider", name))
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Available lists provider names, sorted.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
