// Package config holds the process-wide settings for the report pipeline.
// Values are resolved once at start (defaults, then an optional YAML file, then
// environment variables) and passed by value into each client constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPerplexityURL = "https://api.perplexity.ai/chat/completions"
	DefaultSonarModel    = "sonar"
	DefaultQwenURL       = "https://api.nuwaapi.com/v1/chat/completions"
	DefaultQwenModel     = "gemini-3-pro-preview"
	DefaultDeepSeekURL   = "https://api.deepseek.com/chat/completions"
	DefaultDeepSeekModel = "deepseek-chat"
	DefaultGeminiModel   = "gemini-2.0-flash-exp"
)

// ProviderConfig describes one OpenAI-compatible (or SDK-backed) endpoint.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	APIURL     string `yaml:"api_url"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
}

// HasKey reports whether an API key is configured.
func (p ProviderConfig) HasKey() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// ReportConfig tunes the three pipeline stages.
type ReportConfig struct {
	MaxSonarQueries       int `yaml:"max_sonar_queries"`
	QueryPlannerMaxTokens int `yaml:"query_planner_max_tokens"`
	DeepAnalysisMaxTokens int `yaml:"deep_analysis_max_tokens"`
	MaxConcurrentSearches int `yaml:"max_concurrent_searches"`
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ExpiryHours int    `yaml:"expiry_hours"`
	Dir         string `yaml:"dir"`
}

// AgentConfig routes a single agent to a provider.
type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

// AgentsConfig selects the reasoning provider for each agent.
type AgentsConfig struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

// Config is the full settings tree.
type Config struct {
	Perplexity        ProviderConfig `yaml:"perplexity"`
	Qwen              ProviderConfig `yaml:"qwen"`
	DeepSeek          ProviderConfig `yaml:"deepseek"`
	Gemini            ProviderConfig `yaml:"gemini"`
	SearchBackend     string         `yaml:"search_backend"` // "sonar" or "gemini"
	APITimeoutSeconds int            `yaml:"api_timeout_seconds"`
	Report            ReportConfig   `yaml:"report"`
	Cache             CacheConfig    `yaml:"cache"`
	Agents            AgentsConfig   `yaml:"agents"`
	DatabaseURL       string         `yaml:"database_url"`
	LogLevel          string         `yaml:"log_level"`
	Port              string         `yaml:"port"`
	PromptsDir        string         `yaml:"prompts_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Perplexity:        ProviderConfig{APIURL: DefaultPerplexityURL, Model: DefaultSonarModel, MaxRetries: 3},
		Qwen:              ProviderConfig{APIURL: DefaultQwenURL, Model: DefaultQwenModel, MaxRetries: 3},
		DeepSeek:          ProviderConfig{APIURL: DefaultDeepSeekURL, Model: DefaultDeepSeekModel, MaxRetries: 3},
		Gemini:            ProviderConfig{Model: DefaultGeminiModel, MaxRetries: 3},
		SearchBackend:     "sonar",
		APITimeoutSeconds: 300,
		Report: ReportConfig{
			MaxSonarQueries:       8,
			QueryPlannerMaxTokens: 500,
			DeepAnalysisMaxTokens: 16000,
			MaxConcurrentSearches: 5,
		},
		Cache: CacheConfig{Enabled: true, ExpiryHours: 6},
		Agents: AgentsConfig{
			ActiveProvider: "qwen",
			Agents: map[string]AgentConfig{
				"query_planner": {Description: "Breaks a research subject into search queries"},
				"deep_analyst":  {Description: "Synthesizes collected evidence into a valuation report"},
			},
		},
		LogLevel: "info",
		Port:     "8080",
	}
}

// Load resolves the configuration. A missing file at path is not an error;
// an unreadable or malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Perplexity.APIKey, "PERPLEXITY_API_KEY")
	setString(&c.Perplexity.APIURL, "PERPLEXITY_API_URL")
	setString(&c.Perplexity.Model, "SONAR_MODEL")

	setString(&c.Qwen.APIKey, "QWEN_API_KEY")
	setString(&c.Qwen.APIURL, "QWEN_API_URL")
	setString(&c.Qwen.Model, "QWEN_MODEL")

	setString(&c.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
	setString(&c.DeepSeek.Model, "DEEPSEEK_MODEL")

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")

	setString(&c.SearchBackend, "SEARCH_BACKEND")
	setString(&c.Agents.ActiveProvider, "ACTIVE_PROVIDER")

	setInt(&c.APITimeoutSeconds, "API_TIMEOUT")
	if v, ok := lookupInt("MAX_RETRIES"); ok {
		c.Perplexity.MaxRetries = v
		c.Qwen.MaxRetries = v
		c.DeepSeek.MaxRetries = v
		c.Gemini.MaxRetries = v
	}

	setInt(&c.Report.MaxSonarQueries, "MAX_SONAR_QUERIES")
	setInt(&c.Report.QueryPlannerMaxTokens, "QUERY_PLANNER_MAX_TOKENS")
	setInt(&c.Report.DeepAnalysisMaxTokens, "DEEP_ANALYSIS_MAX_TOKENS")
	setInt(&c.Report.MaxConcurrentSearches, "MAX_CONCURRENT_SEARCHES")

	// Unset means enabled.
	if v, ok := os.LookupEnv("ENABLE_CACHE"); ok {
		c.Cache.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	setInt(&c.Cache.ExpiryHours, "CACHE_EXPIRY_HOURS")
	setString(&c.Cache.Dir, "CACHE_DIR")

	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Port, "PORT")
	setString(&c.PromptsDir, "PROMPTS_DIR")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookupInt(key); ok {
		*dst = v
	}
}

func lookupInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate returns a list of human-readable problems; empty means usable.
func (c Config) Validate() []string {
	var problems []string

	if c.SearchBackend == "gemini" {
		if !c.Gemini.HasKey() {
			problems = append(problems, "GEMINI_API_KEY is required for the gemini search backend")
		}
	} else if !c.Perplexity.HasKey() {
		problems = append(problems, "PERPLEXITY_API_KEY is required")
	}

	switch c.Agents.ActiveProvider {
	case "deepseek":
		if !c.DeepSeek.HasKey() {
			problems = append(problems, "DEEPSEEK_API_KEY is required")
		}
	case "gemini":
		if !c.Gemini.HasKey() {
			problems = append(problems, "GEMINI_API_KEY is required")
		}
	default:
		if !c.Qwen.HasKey() {
			problems = append(problems, "QWEN_API_KEY is required")
		}
	}

	if c.Report.MaxSonarQueries < 1 || c.Report.MaxSonarQueries > 20 {
		problems = append(problems, "MAX_SONAR_QUERIES should be between 1 and 20")
	}
	if c.Report.MaxConcurrentSearches < 1 || c.Report.MaxConcurrentSearches > 10 {
		problems = append(problems, "MAX_CONCURRENT_SEARCHES should be between 1 and 10")
	}
	return problems
}

// ProviderSummary is the secret-free view of a ProviderConfig.
type ProviderSummary struct {
	APIURL     string `json:"apiUrl,omitempty"`
	Model      string `json:"model"`
	HasAPIKey  bool   `json:"hasApiKey"`
	MaxRetries int    `json:"maxRetries"`
}

// Summary is safe to log or return over HTTP.
type Summary struct {
	Perplexity        ProviderSummary `json:"perplexity"`
	Qwen              ProviderSummary `json:"qwen"`
	DeepSeek          ProviderSummary `json:"deepseek"`
	Gemini            ProviderSummary `json:"gemini"`
	SearchBackend     string          `json:"searchBackend"`
	ActiveProvider    string          `json:"activeProvider"`
	APITimeoutSeconds int             `json:"apiTimeoutSeconds"`
	Report            ReportConfig    `json:"reportGeneration"`
	CacheEnabled      bool            `json:"enableCache"`
	CacheExpiryHours  int             `json:"cacheExpiryHours"`
	HasDatabase       bool            `json:"hasDatabase"`
}

func summarize(p ProviderConfig) ProviderSummary {
	return ProviderSummary{APIURL: p.APIURL, Model: p.Model, HasAPIKey: p.HasKey(), MaxRetries: p.MaxRetries}
}

// Summary strips credentials from the configuration.
func (c Config) Summary() Summary {
	return Summary{
		Perplexity:        summarize(c.Perplexity),
		Qwen:              summarize(c.Qwen),
		DeepSeek:          summarize(c.DeepSeek),
		Gemini:            summarize(c.Gemini),
		SearchBackend:     c.SearchBackend,
		ActiveProvider:    c.Agents.ActiveProvider,
		APITimeoutSeconds: c.APITimeoutSeconds,
		Report:            c.Report,
		CacheEnabled:      c.Cache.Enabled,
		CacheExpiryHours:  c.Cache.ExpiryHours,
		HasDatabase:       c.DatabaseURL != "",
	}
}
