package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/condense/pkg/models"
)

// openAIContextWindows mirrors the context sizes this codebase's other
// OpenAI-backed providers advertise for their supported models.
var openAIContextWindows = map[string]int{
	"gpt-4o":        128000,
	"gpt-4-turbo":   128000,
	"gpt-4":         8192,
	"gpt-3.5-turbo": 16385,
}

// OpenAIConfig configures an OpenAIHandle.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	ContextWindow int
}

// OpenAIHandle adapts OpenAI's chat completions API to condense.LLMHandle.
type OpenAIHandle struct {
	client    *openai.Client
	model     string
	maxTokens int
	window    int
}

// NewOpenAIHandle constructs an OpenAIHandle from config.
func NewOpenAIHandle(config OpenAIConfig) (*OpenAIHandle, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errors.New("condense/llm: openai API key is required")
	}

	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gpt-4o"
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	window := config.ContextWindow
	if window <= 0 {
		window = openAIContextWindows[model]
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if base := strings.TrimSpace(config.BaseURL); base != "" {
		clientConfig.BaseURL = base
	}

	return &OpenAIHandle{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: maxTokens,
		window:    window,
	}, nil
}

// ContextWindow reports the model's context window in tokens, if known.
func (h *OpenAIHandle) ContextWindow() (int, bool) {
	return h.window, h.window > 0
}

// MaxOutputTokens reports the configured max output tokens for a summarization call.
func (h *OpenAIHandle) MaxOutputTokens() (int, bool) {
	return h.maxTokens, h.maxTokens > 0
}

// CountTokens estimates token usage with the same character-based
// approximation used across this codebase's budget checks; a real
// tokenizer (e.g. tiktoken) is not wired in, consistent with the other
// provider adapters this one is modeled on.
func (h *OpenAIHandle) CountTokens(messages []models.LLMMessage) (int, error) {
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

// Complete sends messages to the configured chat model and returns the
// first choice's text along with the response ID.
func (h *OpenAIHandle) Complete(ctx context.Context, messages []models.LLMMessage) (string, string, error) {
	converted, err := convertOpenAIMessages(messages)
	if err != nil {
		return "", "", fmt.Errorf("condense/llm: openai: %w", err)
	}

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     h.model,
		Messages:  converted,
		MaxTokens: h.maxTokens,
	})
	if err != nil {
		return "", "", fmt.Errorf("condense/llm: openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", errors.New("condense/llm: openai returned no choices")
	}

	return resp.Choices[0].Message.Content, resp.ID, nil
}

func convertOpenAIMessages(messages []models.LLMMessage) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		var sb strings.Builder
		for _, part := range m.Content {
			tc, ok := part.(models.TextContent)
			if !ok {
				return nil, fmt.Errorf("unsupported content part %T", part)
			}
			sb.WriteString(tc.Text)
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: sb.String(),
		})
	}
	return result, nil
}
