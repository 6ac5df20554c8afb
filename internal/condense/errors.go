package condense

import (
	"errors"
	"fmt"
)

// ErrKind categorizes the errors the Engine can raise at its boundary.
type ErrKind string

const (
	// ErrKindInvalidConfig indicates RollingCondenser construction was
	// given a configuration that cannot produce a valid condensation range.
	ErrKindInvalidConfig ErrKind = "invalid_config"

	// ErrKindSummarizerUnavailable indicates the summarizer LLM call
	// failed or timed out. No Condensation is appended in this case.
	ErrKindSummarizerUnavailable ErrKind = "summarizer_unavailable"

	// ErrKindMalformedEvent indicates an event failed to deserialize at
	// the boundary. The in-memory log should never contain one.
	ErrKindMalformedEvent ErrKind = "malformed_event"
)

// EngineError is a structured error from the condensation engine,
// categorized for callers that want to branch on failure kind.
type EngineError struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("condense: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("condense: %s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is comparison by error kind, so callers can write
// errors.Is(err, condense.ErrSummarizerUnavailable) without type-asserting.
func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Sentinel EngineErrors usable with errors.Is for kind-only comparisons.
var (
	ErrInvalidConfig         = &EngineError{Kind: ErrKindInvalidConfig}
	ErrSummarizerUnavailable = &EngineError{Kind: ErrKindSummarizerUnavailable}
	ErrMalformedEvent        = &EngineError{Kind: ErrKindMalformedEvent}
)

func newInvalidConfigError(message string) *EngineError {
	return &EngineError{Kind: ErrKindInvalidConfig, Message: message}
}

func newSummarizerUnavailableError(message string, cause error) *EngineError {
	return &EngineError{Kind: ErrKindSummarizerUnavailable, Message: message, Cause: cause}
}

func newMalformedEventError(message string, cause error) *EngineError {
	return &EngineError{Kind: ErrKindMalformedEvent, Message: message, Cause: cause}
}
