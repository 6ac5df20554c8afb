package config

import "strings"

// LLMConfig selects and configures the LLM provider backing the rolling
// condenser's summarization calls.
type LLMConfig struct {
	// Provider selects which of Anthropic/OpenAI backs the condenser's
	// Summarizer. One of "anthropic", "openai".
	Provider string `yaml:"provider"`

	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
}

// ProviderConfig configures a single LLM provider adapter
// (internal/condense/llm).
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// MaxTokens bounds the summarizer's completion length.
	MaxTokens int `yaml:"max_tokens"`

	// ContextWindow overrides the provider adapter's built-in model-size
	// table; leave zero to use the adapter's default for Model.
	ContextWindow int `yaml:"context_window"`
}

func applyLLMDefaults(cfg *LLMConfig) {
	if strings.TrimSpace(cfg.Provider) == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.Anthropic.MaxTokens == 0 {
		cfg.Anthropic.MaxTokens = 1024
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = 1024
	}
}
