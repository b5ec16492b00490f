package llm

import "valuation_research/pkg/core/config"

func NewDeepSeekClient(cfg config.ProviderConfig, opts ...Option) *ChatClient {
	if cfg.APIURL == "" {
		cfg.APIURL = config.DefaultDeepSeekURL
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultDeepSeekModel
	}
	return NewChatClient("deepseek", cfg, opts...)
}
