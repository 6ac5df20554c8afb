package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/haasonsaas/condense/pkg/models"
)

func TestConvertMessages_SkipsSystemRole(t *testing.T) {
	messages := []models.LLMMessage{
		{Role: models.RoleSystem, Content: []models.ContentPart{models.TextContent{Text: "be nice"}}},
		{Role: models.RoleUser, Content: []models.ContentPart{models.TextContent{Text: "hello"}}},
		{Role: models.RoleAssistant, Content: []models.ContentPart{models.TextContent{Text: "hi"}}},
	}

	converted, err := convertMessages(messages)
	if err != nil {
		t.Fatalf("convertMessages: %v", err)
	}
	if len(converted) != 2 {
		t.Fatalf("len(converted) = %d, want 2 (system role dropped)", len(converted))
	}
	if converted[0].Role != anthropic.MessageParamRoleUser {
		t.Errorf("converted[0].Role = %v, want user", converted[0].Role)
	}
	if converted[1].Role != anthropic.MessageParamRoleAssistant {
		t.Errorf("converted[1].Role = %v, want assistant", converted[1].Role)
	}
}

func TestAnthropicHandle_ContextWindow_FallsBackByModel(t *testing.T) {
	h, err := NewAnthropicHandle(AnthropicConfig{APIKey: "sk-ant-test", Model: "claude-sonnet-4-20250514"})
	if err != nil {
		t.Fatalf("NewAnthropicHandle: %v", err)
	}
	window, ok := h.ContextWindow()
	if !ok || window != 200000 {
		t.Errorf("ContextWindow() = (%d, %v), want (200000, true)", window, ok)
	}
}

func TestNewAnthropicHandle_RequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicHandle(AnthropicConfig{}); err == nil {
		t.Error("expected an error when APIKey is empty")
	}
}

func TestAnthropicHandle_CountTokens(t *testing.T) {
	h, err := NewAnthropicHandle(AnthropicConfig{APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("NewAnthropicHandle: %v", err)
	}
	messages := []models.LLMMessage{
		{Role: models.RoleUser, Content: []models.ContentPart{models.TextContent{Text: "12345678"}}},
	}
	count, err := h.CountTokens(messages)
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if count <= 0 {
		t.Errorf("CountTokens() = %d, want > 0", count)
	}
}
