package llm

import "valuation_research/pkg/core/config"

// NewQwenClient is the default reasoning backend. The endpoint is an
// OpenAI-compatible gateway, so the model name may be any model it routes.
func NewQwenClient(cfg config.ProviderConfig, opts ...Option) *ChatClient {
	if cfg.APIURL == "" {
		cfg.APIURL = config.DefaultQwenURL
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultQwenModel
	}
	return NewChatClient("qwen", cfg, opts...)
}
