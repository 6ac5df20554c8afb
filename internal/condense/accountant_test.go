package condense

import (
	"context"
	"testing"

	"github.com/haasonsaas/condense/pkg/models"
)

// fakeHandle counts tokens as one token per character of rendered text,
// purely for deterministic budget-boundary tests.
type fakeHandle struct {
	window  int
	windowOK bool
}

func (f *fakeHandle) ContextWindow() (int, bool)    { return f.window, f.windowOK }
func (f *fakeHandle) MaxOutputTokens() (int, bool)  { return 0, false }
func (f *fakeHandle) Complete(context.Context, []models.LLMMessage) (string, string, error) {
	return "", "", nil
}
func (f *fakeHandle) CountTokens(messages []models.LLMMessage) (int, error) {
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

func TestTokenAccountant_Budget_AppliesMargin(t *testing.T) {
	a := NewTokenAccountant(&fakeHandle{window: 1000, windowOK: true}, 0.1)
	if got := a.Budget(); got != 900 {
		t.Errorf("Budget() = %d, want 900", got)
	}
}

func TestTokenAccountant_Budget_FallsBackWithoutHandle(t *testing.T) {
	a := NewTokenAccountant(nil, 0.1)
	if a.Budget() <= 0 {
		t.Errorf("expected a positive default budget, got %d", a.Budget())
	}
}

func TestTokenAccountant_EstimateTokens_MissingHandle(t *testing.T) {
	a := NewTokenAccountant(nil, 0.1)
	if _, err := a.EstimateTokens(nil); err != ErrTokenizerMissing {
		t.Errorf("expected ErrTokenizerMissing, got %v", err)
	}
}

func convertibleMessages(texts ...string) []models.LLMConvertible {
	out := make([]models.LLMConvertible, len(texts))
	for i, text := range texts {
		out[i] = msg(models.EventID("m"), text)
	}
	return out
}

func TestTokenAccountant_MaxTailWithinBudget(t *testing.T) {
	a := NewTokenAccountant(&fakeHandle{window: 1000, windowOK: true}, 0)
	head := convertibleMessages("aaaaa") // 5 tokens
	tail := convertibleMessages("bb", "cc", "dd", "ee", "ff") // 2 tokens each, 5 events

	// budget of 11: head(5) + up to 3 tail events (2 each = 6) = 11 fits;
	// 4 tail events would be 5+8=13, too many.
	n, err := a.MaxTailWithinBudget(head, tail, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("MaxTailWithinBudget = %d, want 3", n)
	}
}

func TestTokenAccountant_MaxTailWithinBudget_ZeroWhenHeadAloneExceeds(t *testing.T) {
	a := NewTokenAccountant(&fakeHandle{window: 1000, windowOK: true}, 0)
	head := convertibleMessages("aaaaaaaaaa") // 10 tokens, already over budget
	tail := convertibleMessages("b")

	n, err := a.MaxTailWithinBudget(head, tail, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("MaxTailWithinBudget = %d, want 0", n)
	}
}
