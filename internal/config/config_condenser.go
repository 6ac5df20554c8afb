package config

import "time"

// CondenserConfig mirrors condense.RollingCondenserConfig for YAML loading;
// internal/condense/engine.go converts it at construction time.
type CondenserConfig struct {
	// MaxSize is the event-count threshold that triggers condensation when
	// no tokenizer is available.
	MaxSize int `yaml:"max_size"`

	// KeepFirst is the number of leading events (after the system prompt)
	// never condensed away.
	KeepFirst int `yaml:"keep_first"`

	// TokenMarginRatio reserves this fraction of the context window as
	// headroom before the condenser triggers.
	TokenMarginRatio float64 `yaml:"token_margin_ratio"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig mirrors internal/retry.Config for YAML loading.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Factor       float64       `yaml:"factor"`
	Jitter       bool          `yaml:"jitter"`
}

func applyCondenserDefaults(cfg *CondenserConfig) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 120
	}
	if cfg.KeepFirst == 0 {
		cfg.KeepFirst = 4
	}
	if cfg.TokenMarginRatio == 0 {
		cfg.TokenMarginRatio = 0.1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 100 * time.Millisecond
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 10 * time.Second
	}
	if cfg.Retry.Factor == 0 {
		cfg.Retry.Factor = 2.0
	}
}
