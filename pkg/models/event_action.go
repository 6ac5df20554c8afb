package models

import (
	"encoding/json"
	"time"
)

// ThinkingBlock is an opaque reasoning token sequence some providers
// require to accompany subsequent tool calls. It may be redacted by the
// provider; a redacted block still counts as "has thinking" for tool-loop
// purposes (see ToolLoopAtomicity).
type ThinkingBlock interface {
	isThinkingBlock()
}

// VisibleThinking is a thinking block whose text is available.
type VisibleThinking struct {
	Text string `json:"text"`
}

func (VisibleThinking) isThinkingBlock() {}

// RedactedThinking is a thinking block whose content was redacted by the
// provider. It still counts toward HasThinking.
type RedactedThinking struct{}

func (RedactedThinking) isThinkingBlock() {}

// Action is an agent tool invocation. Actions sharing an LLMResponseID
// form a batch (see BatchAtomicity); an Action with non-empty
// ThinkingBlocks starts a tool loop (see ToolLoopAtomicity).
type Action struct {
	EventBase
	LLMResponseID  string          `json:"llm_response_id"`
	ToolCallID     string          `json:"tool_call_id"`
	ToolName       string          `json:"tool_name"`
	ActionArgs     json.RawMessage `json:"action,omitempty"`
	ThinkingBlocks []ThinkingBlock `json:"-"`
	Thought        string          `json:"thought,omitempty"`
}

func NewAction(id EventID, llmResponseID, toolCallID, toolName string) *Action {
	return &Action{
		EventBase:     EventBase{ID: id, Kind: EventKindAction, CreatedAt: time.Now(), Source: SourceAgent},
		LLMResponseID: llmResponseID,
		ToolCallID:    toolCallID,
		ToolName:      toolName,
	}
}

func (a *Action) WithThinking(blocks ...ThinkingBlock) *Action {
	a.ThinkingBlocks = blocks
	return a
}

func (a *Action) WithThought(thought string) *Action {
	a.Thought = thought
	return a
}

// HasThinking reports whether this Action starts a tool loop.
func (a *Action) HasThinking() bool {
	return len(a.ThinkingBlocks) > 0
}

func (a *Action) ToLLMMessage() LLMMessage {
	text := a.Thought
	if text == "" {
		text = "[tool call: " + a.ToolName + "]"
	}
	return LLMMessage{Role: RoleAssistant, Content: []ContentPart{TextContent{Text: text}}}
}

// Observation is the result of an Action, matched to it by ToolCallID.
type Observation struct {
	EventBase
	ToolCallID string        `json:"tool_call_id"`
	ActionID   EventID       `json:"action_id"`
	Content    []ContentPart `json:"content"`
}

func NewObservation(id EventID, toolCallID string, actionID EventID, content ...ContentPart) *Observation {
	return &Observation{
		EventBase:  EventBase{ID: id, Kind: EventKindObservation, CreatedAt: time.Now(), Source: SourceEnvironment},
		ToolCallID: toolCallID,
		ActionID:   actionID,
		Content:    content,
	}
}

func (o *Observation) ToLLMMessage() LLMMessage {
	return LLMMessage{Role: RoleTool, Content: o.Content}
}

// observationWire is Observation's JSON shape with Content narrowed to the
// only ContentPart implementation this engine persists today.
type observationWire struct {
	EventBase
	ToolCallID string        `json:"tool_call_id"`
	ActionID   EventID       `json:"action_id"`
	Content    []TextContent `json:"content"`
}

// UnmarshalJSON recovers Content as the sealed ContentPart interface; see
// Message.UnmarshalJSON for why this can't be done automatically.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var wire observationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	o.EventBase = wire.EventBase
	o.ToolCallID = wire.ToolCallID
	o.ActionID = wire.ActionID
	o.Content = make([]ContentPart, len(wire.Content))
	for i, tc := range wire.Content {
		o.Content[i] = tc
	}
	return nil
}

// AgentError is a non-tool error surfaced directly to the LLM, e.g. when
// the agentic loop itself fails outside of any tool call.
type AgentError struct {
	EventBase
	Message string `json:"message"`
}

func NewAgentError(id EventID, message string) *AgentError {
	return &AgentError{
		EventBase: EventBase{ID: id, Kind: EventKindAgentError, CreatedAt: time.Now(), Source: SourceEnvironment},
		Message:   message,
	}
}

func (e *AgentError) ToLLMMessage() LLMMessage {
	return LLMMessage{Role: RoleUser, Content: []ContentPart{TextContent{Text: "Error: " + e.Message}}}
}

// UserReject records a confirmation-mode rejection of a proposed Action.
// It satisfies ToolCallMatching as though it were the Action's Observation
// (see Open Question 1 in DESIGN.md).
type UserReject struct {
	EventBase
	ToolCallID      string  `json:"tool_call_id"`
	ActionID        EventID `json:"action_id,omitempty"`
	RejectionReason string  `json:"rejection_reason"`
}

func NewUserReject(id EventID, toolCallID string, actionID EventID, reason string) *UserReject {
	return &UserReject{
		EventBase:       EventBase{ID: id, Kind: EventKindUserReject, CreatedAt: time.Now(), Source: SourceUser},
		ToolCallID:      toolCallID,
		ActionID:        actionID,
		RejectionReason: reason,
	}
}

func (u *UserReject) ToLLMMessage() LLMMessage {
	text := "User rejected this action"
	if u.RejectionReason != "" {
		text += ": " + u.RejectionReason
	}
	return LLMMessage{Role: RoleTool, Content: []ContentPart{TextContent{Text: text}}}
}
