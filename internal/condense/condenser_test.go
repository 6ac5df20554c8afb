package condense

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/condense/internal/retry"
	"github.com/haasonsaas/condense/pkg/models"
)

type stubHandle struct {
	window     int
	summary    string
	responseID string
	err        error
	calls      int
}

func (s *stubHandle) ContextWindow() (int, bool)   { return s.window, s.window > 0 }
func (s *stubHandle) MaxOutputTokens() (int, bool) { return 0, false }
func (s *stubHandle) CountTokens(messages []models.LLMMessage) (int, error) {
	total := 0
	for _, m := range messages {
		for _, part := range m.Content {
			if tc, ok := part.(models.TextContent); ok {
				total += len(tc.Text)
			}
		}
	}
	return total, nil
}
func (s *stubHandle) Complete(ctx context.Context, messages []models.LLMMessage) (string, string, error) {
	s.calls++
	if s.err != nil {
		return "", "", s.err
	}
	return s.summary, s.responseID, nil
}

func fastRetryConfig() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Factor: 1}
}

// S6: when the entire view must be forgotten, the condenser emits a
// hard-reset Condensation (summary_offset == 0).
func TestRollingCondenser_HardReset(t *testing.T) {
	handle := &stubHandle{window: 100000, summary: "everything summarized", responseID: "resp-1"}
	cfg := DefaultRollingCondenserConfig()
	cfg.KeepFirst = 0
	cfg.RetryConfig = fastRetryConfig()
	c, err := NewRollingCondenser(cfg, handle, nil)
	if err != nil {
		t.Fatalf("NewRollingCondenser: %v", err)
	}

	view := &View{
		Events:                       []models.LLMConvertible{msg("m1", "old"), msg("m2", "older")},
		UnhandledCondensationRequest: true,
	}
	// Force the whole view to be forgotten by giving a zero budget so no
	// tail fits, and requesting via unhandled condensation request.
	c.accountant = NewTokenAccountant(&stubHandle{window: 1}, 0.99)
	c.handle = handle

	condensation, err := c.MaybeCondense(context.Background(), view, "c1")
	if err != nil {
		t.Fatalf("MaybeCondense: %v", err)
	}
	if condensation == nil {
		t.Fatal("expected a condensation, got nil")
	}
	if !condensation.IsHardReset() {
		t.Errorf("expected a hard reset, got summary_offset=%v", condensation.SummaryOffset)
	}
	if len(condensation.ForgottenEventIDs) != 2 {
		t.Errorf("expected both events forgotten, got %v", condensation.ForgottenEventIDs)
	}
}

// S7: exceeding MaxSize with no tokenizer available triggers condensation
// via the count-based fallback.
func TestRollingCondenser_ShouldCondense_CountFallback(t *testing.T) {
	cfg := DefaultRollingCondenserConfig()
	cfg.MaxSize = 10
	c, err := NewRollingCondenser(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRollingCondenser: %v", err)
	}

	small := &View{Events: make([]models.LLMConvertible, 5)}
	if c.ShouldCondense(small) {
		t.Error("5 events under max_size=10 should not trigger condensation")
	}

	large := &View{Events: make([]models.LLMConvertible, 11)}
	if !c.ShouldCondense(large) {
		t.Error("11 events over max_size=10 should trigger condensation")
	}
}

// S8: a view that exceeds the token budget triggers condensation even
// when it is well under MaxSize by count.
func TestRollingCondenser_ShouldCondense_TokenBudget(t *testing.T) {
	cfg := DefaultRollingCondenserConfig()
	cfg.MaxSize = 1000 // large, so count alone would not trigger
	handle := &stubHandle{window: 10}
	c, err := NewRollingCondenser(cfg, handle, nil)
	if err != nil {
		t.Fatalf("NewRollingCondenser: %v", err)
	}

	view := &View{Events: []models.LLMConvertible{
		msg("m1", "this text is much longer than the tiny token budget allows"),
	}}
	if !c.ShouldCondense(view) {
		t.Error("expected token-budget overflow to trigger condensation")
	}
}

func TestRollingCondenserConfig_Validate_RejectsImpossibleRange(t *testing.T) {
	cfg := RollingCondenserConfig{MaxSize: 4, KeepFirst: 4}
	if _, err := NewRollingCondenser(cfg, nil, nil); err == nil {
		t.Error("expected validation error when max_size/2 - keep_first - 1 <= 0")
	}
}

func TestRollingCondenser_SummarizerFailure_ReturnsNoCondensation(t *testing.T) {
	handle := &stubHandle{window: 1, err: errors.New("upstream down")}
	cfg := DefaultRollingCondenserConfig()
	cfg.KeepFirst = 0
	cfg.RetryConfig = fastRetryConfig()
	c, err := NewRollingCondenser(cfg, handle, nil)
	if err != nil {
		t.Fatalf("NewRollingCondenser: %v", err)
	}

	view := &View{
		Events:                       []models.LLMConvertible{msg("m1", "a"), msg("m2", "b")},
		UnhandledCondensationRequest: true,
	}
	condensation, err := c.MaybeCondense(context.Background(), view, "c1")
	if err == nil {
		t.Fatal("expected a summarizer-unavailable error")
	}
	if !errors.Is(err, ErrSummarizerUnavailable) {
		t.Errorf("expected ErrSummarizerUnavailable, got %v", err)
	}
	if condensation != nil {
		t.Error("expected no condensation to be emitted on summarizer failure")
	}
	if c.State() != CondenserIdle {
		t.Errorf("expected condenser to return to idle after failure, got %v", c.State())
	}
}
