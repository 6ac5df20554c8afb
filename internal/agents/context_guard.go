// Package agents provides the context-window sizing guard the Token
// Accountant uses to resolve and validate the active model's context
// window.
package agents

// Constants for context window thresholds.
const (
	// ContextWindowHardMinTokens is the minimum context window size below which the engine should refuse to operate.
	ContextWindowHardMinTokens = 16_000
	// ContextWindowWarnBelowTokens is the threshold below which a warning should be issued.
	ContextWindowWarnBelowTokens = 32_000
)

// ContextWindowSource indicates where the context window value was resolved from.
type ContextWindowSource string

const (
	// ContextWindowSourceModel indicates the value came from the LLM handle.
	ContextWindowSourceModel ContextWindowSource = "model"
	// ContextWindowSourceDefault indicates the package default was used.
	ContextWindowSourceDefault ContextWindowSource = "default"
)

// ContextWindowInfo contains resolved context window information.
type ContextWindowInfo struct {
	Tokens int                 `json:"tokens"`
	Source ContextWindowSource `json:"source"`
}

// ContextWindowGuardResult contains the result of context window evaluation.
type ContextWindowGuardResult struct {
	ContextWindowInfo
	ShouldWarn  bool `json:"should_warn"`
	ShouldBlock bool `json:"should_block"`
}

// ResolveContextWindowInfo resolves the context window to use, preferring
// the LLM handle's reported window over the package default.
// Priority order: model > default.
func ResolveContextWindowInfo(modelContextWindow, defaultTokens int) ContextWindowInfo {
	if modelContextWindow > 0 {
		return ContextWindowInfo{
			Tokens: modelContextWindow,
			Source: ContextWindowSourceModel,
		}
	}
	return ContextWindowInfo{
		Tokens: defaultTokens,
		Source: ContextWindowSourceDefault,
	}
}

// EvaluateContextWindowGuardOptions contains options for EvaluateContextWindowGuard.
type EvaluateContextWindowGuardOptions struct {
	// WarnBelowTokens is the threshold below which a warning should be issued.
	// If zero, ContextWindowWarnBelowTokens is used.
	WarnBelowTokens int
	// HardMinTokens is the minimum tokens below which operation should be blocked.
	// If zero, ContextWindowHardMinTokens is used.
	HardMinTokens int
}

// EvaluateContextWindowGuard evaluates the resolved context window and
// returns warning/blocking status.
func EvaluateContextWindowGuard(info ContextWindowInfo, opts *EvaluateContextWindowGuardOptions) ContextWindowGuardResult {
	warnBelow := ContextWindowWarnBelowTokens
	hardMin := ContextWindowHardMinTokens

	if opts != nil {
		if opts.WarnBelowTokens > 0 {
			warnBelow = opts.WarnBelowTokens
		}
		if opts.HardMinTokens > 0 {
			hardMin = opts.HardMinTokens
		}
	}

	// Ensure thresholds are at least 1
	if warnBelow < 1 {
		warnBelow = 1
	}
	if hardMin < 1 {
		hardMin = 1
	}

	tokens := info.Tokens
	if tokens < 0 {
		tokens = 0
	}

	return ContextWindowGuardResult{
		ContextWindowInfo: ContextWindowInfo{
			Tokens: tokens,
			Source: info.Source,
		},
		ShouldWarn:  tokens > 0 && tokens < warnBelow,
		ShouldBlock: tokens > 0 && tokens < hardMin,
	}
}
