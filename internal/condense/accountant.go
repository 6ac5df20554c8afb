package condense

import (
	"context"
	"errors"

	"github.com/haasonsaas/condense/internal/agents"
	"github.com/haasonsaas/condense/pkg/models"
)

// ErrTokenizerMissing is returned by EstimateTokens when no LLMHandle is
// configured to count tokens. Callers fall back to an event-count policy
// (spec.md §7 TokenizerMissing) rather than treating this as fatal.
var ErrTokenizerMissing = errors.New("condense: tokenizer unavailable, falling back to event count")

// defaultContextWindow is the context window assumed when no LLMHandle is
// configured or the handle doesn't report one.
const defaultContextWindow = 128000

// LLMHandle is the subset of an LLM client the accountant and condenser
// need: context-window discovery and token counting for budget decisions,
// plus the completion call the rolling condenser uses to summarize.
type LLMHandle interface {
	// ContextWindow returns the model's context window in tokens, if known.
	ContextWindow() (tokens int, ok bool)
	// MaxOutputTokens returns the model's maximum completion length, if known.
	MaxOutputTokens() (tokens int, ok bool)
	// CountTokens returns the exact or provider-estimated token count for
	// a rendered message sequence.
	CountTokens(messages []models.LLMMessage) (int, error)
	// Complete asks the model to produce a single text completion for the
	// given messages, returning the completion text and the provider's
	// response id.
	Complete(ctx context.Context, messages []models.LLMMessage) (text string, responseID string, err error)
}

// TokenAccountant resolves a model's context window into a condensation
// budget and answers whether a given view fits within it.
type TokenAccountant struct {
	handle           LLMHandle
	tokenMarginRatio float64
}

// NewTokenAccountant builds an accountant reserving tokenMarginRatio of the
// context window as headroom for the system prompt, tool schemas, and the
// model's own completion (spec.md §4.5). A non-positive ratio defaults to 0.1.
func NewTokenAccountant(handle LLMHandle, tokenMarginRatio float64) *TokenAccountant {
	if tokenMarginRatio <= 0 {
		tokenMarginRatio = 0.1
	}
	return &TokenAccountant{handle: handle, tokenMarginRatio: tokenMarginRatio}
}

// handleContextWindow returns the context window the configured LLMHandle
// reports, or 0 if no handle is configured or it doesn't know.
func (a *TokenAccountant) handleContextWindow() int {
	if a.handle == nil {
		return 0
	}
	if tokens, ok := a.handle.ContextWindow(); ok {
		return tokens
	}
	return 0
}

// contextWindowInfo resolves the active context window, preferring the
// live handle's reported window and falling back to the package default —
// the same model > default priority chain used elsewhere in this codebase.
func (a *TokenAccountant) contextWindowInfo() agents.ContextWindowInfo {
	return agents.ResolveContextWindowInfo(a.handleContextWindow(), defaultContextWindow)
}

func (a *TokenAccountant) contextWindow() int {
	return a.contextWindowInfo().Tokens
}

// ContextWindowGuard evaluates the resolved context window against the
// warn/block thresholds (spec.md §6 MissingLLMCapability): a window below
// the hard minimum means the condenser cannot make meaningful progress no
// matter how it trims the tail.
func (a *TokenAccountant) ContextWindowGuard() agents.ContextWindowGuardResult {
	return agents.EvaluateContextWindowGuard(a.contextWindowInfo(), nil)
}

// Budget returns the usable token budget after reserving the margin ratio.
func (a *TokenAccountant) Budget() int {
	window := a.contextWindow()
	budget := int(float64(window) * (1 - a.tokenMarginRatio))
	if budget < 0 {
		budget = 0
	}
	return budget
}

func toLLMMessages(events []models.LLMConvertible) []models.LLMMessage {
	msgs := make([]models.LLMMessage, len(events))
	for i, e := range events {
		msgs[i] = e.ToLLMMessage()
	}
	return msgs
}

// EstimateTokens counts the tokens a sequence of events would occupy once
// rendered to LLM messages. Returns ErrTokenizerMissing if no handle is
// configured; callers should fall back to an event-count policy.
func (a *TokenAccountant) EstimateTokens(events []models.LLMConvertible) (int, error) {
	if a.handle == nil {
		return 0, ErrTokenizerMissing
	}
	return a.handle.CountTokens(toLLMMessages(events))
}

// FitsBudget reports whether the given events fit within the accountant's
// budget. ok is false if token counting is unavailable.
func (a *TokenAccountant) FitsBudget(events []models.LLMConvertible) (fits bool, ok bool) {
	tokens, err := a.EstimateTokens(events)
	if err != nil {
		return false, false
	}
	return tokens <= a.Budget(), true
}

// MaxTailWithinBudget finds, via binary search, the largest n such that
// head followed by the last n elements of tail fits within budget tokens
// (spec.md §4.5's max_tail_within_budget). Returns ErrTokenizerMissing if
// token counting is unavailable.
func (a *TokenAccountant) MaxTailWithinBudget(head, tail []models.LLMConvertible, budget int) (int, error) {
	lo, hi, best := 0, len(tail), 0
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := make([]models.LLMConvertible, 0, len(head)+mid)
		candidate = append(candidate, head...)
		candidate = append(candidate, tail[len(tail)-mid:]...)

		tokens, err := a.EstimateTokens(candidate)
		if err != nil {
			return 0, err
		}
		if tokens <= budget {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}
