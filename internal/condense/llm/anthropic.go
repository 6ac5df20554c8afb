// Package llm adapts third-party LLM SDKs to condense.LLMHandle, the
// interface the rolling condenser uses for token accounting and
// summarization calls.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/condense/pkg/models"
)

// anthropicContextWindows gives the context window, in tokens, for the
// Claude models this adapter expects to summarize with. Models outside
// this list fall back to AnthropicConfig.ContextWindow.
var anthropicContextWindows = map[string]int{
	"claude-sonnet-4-20250514":   200000,
	"claude-opus-4-20250514":     200000,
	"claude-3-5-sonnet-20241022": 200000,
	"claude-3-haiku-20240307":    200000,
}

// AnthropicConfig configures an AnthropicHandle.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int64
	ContextWindow int
}

// AnthropicHandle adapts Anthropic's Messages API to condense.LLMHandle.
// It is used both to count tokens for budget decisions and to run the
// summarization call itself.
type AnthropicHandle struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	window    int
}

// NewAnthropicHandle constructs an AnthropicHandle from config.
func NewAnthropicHandle(config AnthropicConfig) (*AnthropicHandle, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errors.New("condense/llm: anthropic API key is required")
	}

	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	window := config.ContextWindow
	if window <= 0 {
		window = anthropicContextWindows[model]
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if base := strings.TrimSpace(config.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &AnthropicHandle{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		window:    window,
	}, nil
}

// ContextWindow reports the model's context window in tokens, if known.
func (h *AnthropicHandle) ContextWindow() (int, bool) {
	return h.window, h.window > 0
}

// MaxOutputTokens reports the configured max output tokens for a summarization call.
func (h *AnthropicHandle) MaxOutputTokens() (int, bool) {
	return int(h.maxTokens), h.maxTokens > 0
}

// CountTokens estimates token usage with a character-based approximation,
// the same rough-but-cheap heuristic this codebase's other Anthropic
// client uses rather than spending an API round trip per budget check.
func (h *AnthropicHandle) CountTokens(messages []models.LLMMessage) (int, error) {
	total := 0
	for _, m := range messages {
		total += len(m.Role) / 4
		for _, part := range m.Content {
			if tc, ok := part.(models.TextContent); ok {
				total += len(tc.Text) / 4
			}
		}
	}
	return total, nil
}

// Complete sends messages to Claude and returns the concatenated text of
// the response along with the message ID, used as the condensation's
// LLMResponseID.
func (h *AnthropicHandle) Complete(ctx context.Context, messages []models.LLMMessage) (string, string, error) {
	converted, err := convertMessages(messages)
	if err != nil {
		return "", "", fmt.Errorf("condense/llm: anthropic: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(h.model),
		Messages:  converted,
		MaxTokens: h.maxTokens,
	}

	resp, err := h.client.Messages.New(ctx, params)
	if err != nil {
		return "", "", fmt.Errorf("condense/llm: anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}

	return sb.String(), resp.ID, nil
}

func convertMessages(messages []models.LLMMessage) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		for _, part := range m.Content {
			tc, ok := part.(models.TextContent)
			if !ok {
				return nil, fmt.Errorf("unsupported content part %T", part)
			}
			content = append(content, anthropic.NewTextBlock(tc.Text))
		}

		if m.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, nil
}
