package condense

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haasonsaas/condense/internal/retry"
	"github.com/haasonsaas/condense/pkg/models"
)

// CondenserState tracks where a single condensation attempt is in its
// lifecycle, mirroring the idle/pending/in-progress shape used elsewhere
// in this codebase for monitored background work.
type CondenserState string

const (
	CondenserIdle        CondenserState = "idle"
	CondenserTriggered   CondenserState = "triggered"
	CondenserSummarizing CondenserState = "summarizing"
	CondenserEmitting    CondenserState = "emitting"
)

// RollingCondenserConfig tunes a RollingCondenser's triggering and
// condensation-sizing behavior (spec.md §4.6).
type RollingCondenserConfig struct {
	// MaxSize is the event-count threshold that triggers condensation when
	// no tokenizer is available.
	MaxSize int
	// KeepFirst is the number of leading events (after the system prompt)
	// never condensed away.
	KeepFirst int
	// TokenMarginRatio reserves this fraction of the context window as
	// headroom (spec.md §4.5).
	TokenMarginRatio float64
	// RetryConfig controls retries of the summarizer LLM call.
	RetryConfig retry.Config
}

// DefaultRollingCondenserConfig mirrors the defaults of the original
// summarizing condenser this engine's trigger/sizing logic was modeled on.
func DefaultRollingCondenserConfig() RollingCondenserConfig {
	return RollingCondenserConfig{
		MaxSize:          120,
		KeepFirst:        4,
		TokenMarginRatio: 0.1,
		RetryConfig:      retry.DefaultConfig(),
	}
}

func (c RollingCondenserConfig) validate() error {
	if c.KeepFirst < 0 {
		return newInvalidConfigError("keep_first must be >= 0")
	}
	if c.MaxSize/2-c.KeepFirst-1 <= 0 {
		return newInvalidConfigError(fmt.Sprintf(
			"max_size=%d and keep_first=%d leave no room to condense (max_size/2 - keep_first - 1 must be > 0)",
			c.MaxSize, c.KeepFirst))
	}
	return nil
}

// Stringifier renders a non-message event (typically an Action) to text
// for inclusion in the summarization prompt.
type Stringifier func(models.LLMConvertible) string

// DefaultStringifier renders an event's LLM-facing text content.
func DefaultStringifier(e models.LLMConvertible) string {
	msg := e.ToLLMMessage()
	var out string
	for _, part := range msg.Content {
		if tc, ok := part.(models.TextContent); ok {
			if out != "" {
				out += " "
			}
			out += tc.Text
		}
	}
	return out
}

// RollingCondenser periodically summarizes the oldest portion of a view,
// keeping a fixed head of recent context plus the leading KeepFirst events
// and replacing the rest with an LLM-generated summary (spec.md §4.6).
type RollingCondenser struct {
	mu          sync.Mutex
	config      RollingCondenserConfig
	accountant  *TokenAccountant
	handle      LLMHandle
	stringify   Stringifier
	promptBuild *promptBuilder
	state       CondenserState
	logger      *slog.Logger
}

// NewRollingCondenser constructs a RollingCondenser. handle may be nil only
// if the caller never intends to call MaybeCondense.
func NewRollingCondenser(config RollingCondenserConfig, handle LLMHandle, logger *slog.Logger) (*RollingCondenser, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RollingCondenser{
		config:      config,
		accountant:  NewTokenAccountant(handle, config.TokenMarginRatio),
		handle:      handle,
		stringify:   DefaultStringifier,
		promptBuild: newPromptBuilder(),
		state:       CondenserIdle,
		logger:      logger,
	}, nil
}

// State reports the condenser's current lifecycle state.
func (c *RollingCondenser) State() CondenserState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ShouldCondense reports whether view warrants condensation: an unhandled
// condensation request always triggers; otherwise it is budget-aware when
// a tokenizer is available, and falls back to a plain event-count
// threshold when it is not (spec.md §7 TokenizerMissing).
func (c *RollingCondenser) ShouldCondense(view *View) bool {
	if view.UnhandledCondensationRequest {
		return true
	}
	if fits, ok := c.accountant.FitsBudget(view.Events); ok {
		return !fits
	}
	return view.Len() > c.config.MaxSize
}

// MaybeCondense produces a Condensation for view if ShouldCondense(view) is
// true, calling the configured LLMHandle to summarize the forgotten span.
// It never mutates view or appends anything to a log; the caller is
// responsible for persisting the returned Condensation. Returns (nil, nil)
// if condensation is not warranted.
func (c *RollingCondenser) MaybeCondense(ctx context.Context, view *View, newID models.EventID) (*models.Condensation, error) {
	if !c.ShouldCondense(view) {
		return nil, nil
	}

	// Surface the context-window guard as a log signal (spec.md §7's rule
	// of thumb: pure computations never raise), escalating to Error when
	// the window is below the hard minimum the condenser needs to make
	// any progress at all.
	if guard := c.accountant.ContextWindowGuard(); guard.ShouldBlock {
		c.logger.Error("condense: context window below hard minimum, proceeding anyway",
			slog.Int("tokens", guard.Tokens), slog.String("source", string(guard.Source)))
	} else if guard.ShouldWarn {
		c.logger.Warn("condense: context window below recommended minimum",
			slog.Int("tokens", guard.Tokens), slog.String("source", string(guard.Source)))
	}

	c.mu.Lock()
	c.state = CondenserTriggered
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.state = CondenserIdle
		c.mu.Unlock()
	}()

	keepFirst := c.config.KeepFirst
	if keepFirst > view.Len() {
		keepFirst = view.Len()
	}
	head := view.Events[:keepFirst]
	rest := view.Events[keepFirst:]

	targetSize := c.resolveTargetSize(view)
	tailLen, err := c.resolveTailLength(head, rest, targetSize)
	if err != nil {
		c.logger.Warn("condense: token budget unavailable, falling back to count-based sizing", slog.String("error", err.Error()))
		tailLen = c.countBasedTailLength(head, rest, view.UnhandledCondensationRequest)
	}

	forgottenCount := len(rest) - tailLen
	if forgottenCount <= 0 {
		return models.NewCondensation(newID, nil), nil
	}
	forgotten := rest[:forgottenCount]

	if forgottenCount == view.Len() {
		return c.hardReset(ctx, newID, view, forgotten)
	}

	return c.summarizeAndEmit(ctx, newID, view, head, forgotten, keepFirst)
}

func (c *RollingCondenser) resolveTargetSizeForLen(totalLen int, unhandled bool) int {
	if unhandled {
		return totalLen / 2
	}
	return c.config.MaxSize / 2
}

func (c *RollingCondenser) resolveTargetSize(view *View) int {
	return c.resolveTargetSizeForLen(view.Len(), view.UnhandledCondensationRequest)
}

func (c *RollingCondenser) resolveTailLength(head, rest []models.LLMConvertible, targetSize int) (int, error) {
	budget := c.accountant.Budget()
	n, err := c.accountant.MaxTailWithinBudget(head, rest, budget)
	if err != nil {
		return 0, err
	}
	countTarget := targetSize - len(head) - 1
	if countTarget < 0 {
		countTarget = 0
	}
	if countTarget < n {
		return countTarget, nil
	}
	return n, nil
}

func (c *RollingCondenser) countBasedTailLength(head, rest []models.LLMConvertible, unhandled bool) int {
	targetSize := c.resolveTargetSizeForLen(len(head)+len(rest), unhandled)
	tail := targetSize - len(head) - 1
	if tail < 0 {
		tail = 0
	}
	if tail > len(rest) {
		tail = len(rest)
	}
	return tail
}

func (c *RollingCondenser) hardReset(ctx context.Context, newID models.EventID, view *View, forgotten []models.LLMConvertible) (*models.Condensation, error) {
	ids := eventIDs(forgotten)
	summary, responseID, err := c.callSummarizer(ctx, "", forgotten)
	if err != nil {
		return nil, err
	}
	c.logger.Info("condense: hard reset", slog.Int("forgotten", len(forgotten)))
	return models.NewCondensation(newID, ids).WithSummary(summary, 0).WithLLMResponseID(responseID), nil
}

func (c *RollingCondenser) summarizeAndEmit(ctx context.Context, newID models.EventID, view *View, head, forgotten []models.LLMConvertible, keepFirst int) (*models.Condensation, error) {
	previousSummary := ""
	if s, ok := view.SummaryEvent(); ok {
		previousSummary = s.Summary
	}

	ids := eventIDs(forgotten)
	summary, responseID, err := c.callSummarizer(ctx, previousSummary, forgotten)
	if err != nil {
		return nil, err
	}
	return models.NewCondensation(newID, ids).WithSummary(summary, keepFirst).WithLLMResponseID(responseID), nil
}

func (c *RollingCondenser) callSummarizer(ctx context.Context, previousSummary string, forgotten []models.LLMConvertible) (string, string, error) {
	if c.handle == nil {
		return "", "", newSummarizerUnavailableError("no LLM handle configured", nil)
	}

	c.mu.Lock()
	c.state = CondenserSummarizing
	c.mu.Unlock()

	prompt := c.promptBuild.build(previousSummary, forgotten, c.stringify)
	messages := []models.LLMMessage{{Role: models.RoleUser, Content: []models.ContentPart{models.TextContent{Text: prompt}}}}

	var summary, responseID string
	result := retry.Do(ctx, c.config.RetryConfig, func() error {
		text, id, err := c.handle.Complete(ctx, messages)
		if err != nil {
			return err
		}
		summary, responseID = text, id
		return nil
	})
	if result.Err != nil {
		return "", "", newSummarizerUnavailableError("summarizer call failed after retries", result.Err)
	}

	c.mu.Lock()
	c.state = CondenserEmitting
	c.mu.Unlock()

	return summary, responseID, nil
}

func eventIDs(events []models.LLMConvertible) []models.EventID {
	ids := make([]models.EventID, len(events))
	for i, e := range events {
		ids[i] = e.EventID()
	}
	return ids
}
