// Package main provides the CLI entry point for the condensation engine.
//
// condense loads a conversation transcript (a JSON array of events) and
// drives it through the Engine: deriving a budget-fitting view and, when
// the view calls for it, running the rolling condenser against a real LLM
// provider.
//
// # Basic Usage
//
// Inspect the derived view without calling an LLM:
//
//	condense view --transcript transcript.json
//
// Derive a view and run the condenser if it triggers:
//
//	condense run --config condense.yaml --transcript transcript.json
//
// Print the embedded JSON Schema for the condenser config section:
//
//	condense schema
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/condense/internal/condense"
	condensellm "github.com/haasonsaas/condense/internal/condense/llm"
	"github.com/haasonsaas/condense/internal/config"
	"github.com/haasonsaas/condense/internal/observability"
	"github.com/haasonsaas/condense/pkg/models"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "condense",
		Short:        "Conversation history condensation engine",
		Long:         "condense derives budget-fitting views over an append-only conversation event log and drives a stateful rolling LLM-summarizing condenser over it.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildViewCmd(), buildRunCmd(), buildSchemaCmd())
	return rootCmd
}

func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the embedded JSON Schema for the condenser config section",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.CondenserSchema())
			return nil
		},
	}
}

func buildViewCmd() *cobra.Command {
	var transcriptPath string
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Derive and print the current view from a transcript, without invoking an LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := condense.NewEngine(condense.DefaultRollingCondenserConfig(), nil)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}
			if err := loadTranscript(engine, transcriptPath); err != nil {
				return err
			}

			view := engine.DeriveView(cmd.Context())
			return printViewSummary(cmd, view)
		},
	}
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "path to a JSON file containing an array of events")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func buildRunCmd() *cobra.Command {
	var configPath string
	var transcriptPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Derive a view and run the rolling condenser against a configured LLM provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			handle, err := buildLLMHandle(cfg.LLM)
			if err != nil {
				return fmt.Errorf("build llm handle: %w", err)
			}

			condenserConfig := condense.DefaultRollingCondenserConfig()
			condenserConfig.MaxSize = cfg.Condenser.MaxSize
			condenserConfig.KeepFirst = cfg.Condenser.KeepFirst
			condenserConfig.TokenMarginRatio = cfg.Condenser.TokenMarginRatio
			condenserConfig.RetryConfig.MaxAttempts = cfg.Condenser.Retry.MaxAttempts
			condenserConfig.RetryConfig.InitialDelay = cfg.Condenser.Retry.InitialDelay
			condenserConfig.RetryConfig.MaxDelay = cfg.Condenser.Retry.MaxDelay
			condenserConfig.RetryConfig.Factor = cfg.Condenser.Retry.Factor
			condenserConfig.RetryConfig.Jitter = cfg.Condenser.Retry.Jitter

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLevel(cfg.Logging.Level),
			}))

			tracer, shutdown := observability.NewTracer(observability.TraceConfig{
				ServiceName:    cfg.Observability.Tracing.ServiceName,
				ServiceVersion: version,
				Environment:    cfg.Observability.Tracing.Environment,
				Endpoint:       cfg.Observability.Tracing.Endpoint,
				SamplingRate:   cfg.Observability.Tracing.SamplingRate,
				EnableInsecure: cfg.Observability.Tracing.Insecure,
			})
			defer func() { _ = shutdown(cmd.Context()) }()

			engine, err := condense.NewEngine(condenserConfig, handle,
				condense.WithLogger(logger),
				condense.WithTracer(tracer),
			)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}

			if err := loadTranscript(engine, transcriptPath); err != nil {
				return err
			}

			view := engine.DeriveView(cmd.Context())
			if !view.UnhandledCondensationRequest {
				return printViewSummary(cmd, view)
			}

			newID := models.EventID(fmt.Sprintf("condensation-%d", view.Len()))
			condensation, err := engine.MaybeCondense(cmd.Context(), view, newID)
			if err != nil {
				return fmt.Errorf("condense: %w", err)
			}
			if condensation == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "condensation request pending but no condensation was emitted")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "condensation %q forgot %d events\n", condensation.ID, len(condensation.ForgottenEventIDs))
			return printViewSummary(cmd, engine.DeriveView(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "condense.yaml", "path to the engine configuration file")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "path to a JSON file containing an array of events")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func buildLLMHandle(cfg config.LLMConfig) (condense.LLMHandle, error) {
	switch cfg.Provider {
	case "anthropic":
		return condensellm.NewAnthropicHandle(condensellm.AnthropicConfig{
			APIKey:        cfg.Anthropic.APIKey,
			BaseURL:       cfg.Anthropic.BaseURL,
			Model:         cfg.Anthropic.Model,
			MaxTokens:     int64(cfg.Anthropic.MaxTokens),
			ContextWindow: cfg.Anthropic.ContextWindow,
		})
	case "openai":
		return condensellm.NewOpenAIHandle(condensellm.OpenAIConfig{
			APIKey:        cfg.OpenAI.APIKey,
			BaseURL:       cfg.OpenAI.BaseURL,
			Model:         cfg.OpenAI.Model,
			MaxTokens:     cfg.OpenAI.MaxTokens,
			ContextWindow: cfg.OpenAI.ContextWindow,
		})
	default:
		return nil, fmt.Errorf("unsupported llm.provider %q", cfg.Provider)
	}
}

// loadTranscript reads a JSON array of events from path and appends them
// to engine in order, reusing condense.EventLog's discriminated-union
// decoding rather than duplicating it here.
func loadTranscript(engine *condense.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	var log condense.EventLog
	if err := json.Unmarshal(data, &log); err != nil {
		return fmt.Errorf("decode transcript: %w", err)
	}

	for _, ev := range log.Snapshot() {
		engine.Append(ev)
	}
	return nil
}

func printViewSummary(cmd *cobra.Command, view *condense.View) error {
	summary := struct {
		Events                       int  `json:"events"`
		Iterations                   int  `json:"fixpoint_iterations"`
		UnhandledCondensationRequest bool `json:"unhandled_condensation_request"`
		Condensations                int  `json:"condensations"`
	}{
		Events:                       view.Len(),
		Iterations:                   view.Iterations,
		UnhandledCondensationRequest: view.UnhandledCondensationRequest,
		Condensations:                len(view.Condensations),
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode view summary: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
