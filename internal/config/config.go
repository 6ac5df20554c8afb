// Package config loads and validates the YAML configuration for the
// condensation engine: LLM provider credentials, condenser tunables, and
// the logging/tracing ambient stack.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a condense Engine deployment.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Condenser     CondenserConfig     `yaml:"condenser"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// Load reads, validates, and parses the configuration file at path.
//
// The `condenser` section is validated against an embedded JSON Schema
// before the document is unmarshaled, so malformed tunables surface a
// precise schema error path rather than a generic decode failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := validateCondenserSchema([]byte(expanded)); err != nil {
		return nil, err
	}

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, newInvalidConfigError(fmt.Sprintf("failed to parse config: %v", err))
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, newInvalidConfigError("config file must contain a single YAML document")
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(&cfg.LLM)
	applyCondenserDefaults(&cfg.Condenser)
	applyLoggingDefaults(&cfg.Logging)
	applyObservabilityDefaults(&cfg.Observability)
}

func validateConfig(cfg *Config) error {
	var issues []string

	provider := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	switch provider {
	case "anthropic":
		if strings.TrimSpace(cfg.LLM.Anthropic.APIKey) == "" {
			issues = append(issues, "llm.anthropic.api_key is required when llm.provider is \"anthropic\"")
		}
	case "openai":
		if strings.TrimSpace(cfg.LLM.OpenAI.APIKey) == "" {
			issues = append(issues, "llm.openai.api_key is required when llm.provider is \"openai\"")
		}
	default:
		issues = append(issues, fmt.Sprintf("llm.provider must be \"anthropic\" or \"openai\", got %q", cfg.LLM.Provider))
	}

	if cfg.Condenser.KeepFirst < 0 {
		issues = append(issues, "condenser.keep_first must be >= 0")
	}
	if cfg.Condenser.MaxSize/2-cfg.Condenser.KeepFirst-1 <= 0 {
		issues = append(issues, fmt.Sprintf(
			"condenser.max_size=%d and condenser.keep_first=%d leave no room to condense (max_size/2 - keep_first - 1 must be > 0)",
			cfg.Condenser.MaxSize, cfg.Condenser.KeepFirst))
	}
	if cfg.Condenser.TokenMarginRatio < 0 || cfg.Condenser.TokenMarginRatio >= 1 {
		issues = append(issues, "condenser.token_margin_ratio must be in [0, 1)")
	}

	if cfg.Logging.Level != "" && !validLogLevel(cfg.Logging.Level) {
		issues = append(issues, "logging.level must be \"debug\", \"info\", \"warn\", or \"error\"")
	}
	if cfg.Logging.Format != "" && cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		issues = append(issues, "logging.format must be \"json\" or \"text\"")
	}

	if cfg.Observability.Tracing.Enabled && strings.TrimSpace(cfg.Observability.Tracing.Endpoint) == "" {
		issues = append(issues, "observability.tracing.endpoint is required when tracing is enabled")
	}

	if len(issues) > 0 {
		return newInvalidConfigError(strings.Join(issues, "; "))
	}
	return nil
}

func validLogLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ConfigValidationError is a malformed or unparseable configuration file.
// It mirrors the sentinel-plus-structured-error idiom used throughout this
// codebase rather than a bare error string.
type ConfigValidationError struct {
	Message string
}

func (e *ConfigValidationError) Error() string {
	return "config: " + e.Message
}

func newInvalidConfigError(message string) *ConfigValidationError {
	return &ConfigValidationError{Message: message}
}
