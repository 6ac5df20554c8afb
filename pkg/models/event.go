// Package models defines the conversation event taxonomy and the shared
// value types the condensation engine and its collaborators operate on.
package models

import (
	"encoding/json"
	"time"
)

// EventID uniquely and stably identifies an event. Assigned once at
// creation and never mutated.
type EventID string

// EventKind tags which of the sealed Event variants a value holds. It is
// also the `kind` discriminator used when an event is serialized.
type EventKind string

const (
	EventKindMessage             EventKind = "Message"
	EventKindSystemPrompt        EventKind = "SystemPrompt"
	EventKindSecurityPrompt      EventKind = "SecurityPrompt"
	EventKindAction              EventKind = "Action"
	EventKindObservation         EventKind = "Observation"
	EventKindAgentError          EventKind = "AgentError"
	EventKindUserReject          EventKind = "UserReject"
	EventKindCondensationRequest EventKind = "CondensationRequest"
	EventKindCondensation        EventKind = "Condensation"
	EventKindCondensationSummary EventKind = "CondensationSummary"
)

// EventSource identifies who or what produced an event.
type EventSource string

const (
	SourceAgent       EventSource = "agent"
	SourceUser        EventSource = "user"
	SourceEnvironment EventSource = "environment"
)

// Role identifies the author of a Message in the sense the downstream LLM
// API understands. Action/Observation/etc. render to a wire role via
// ToLLMMessage without widening this enum.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleTool is used only when rendering Action/Observation/UserReject
	// events to LLM messages; it is not a valid role for a Message event.
	RoleTool Role = "tool"
)

// ContentPart is a single piece of message content. TextContent is the
// only part type exercised by this engine today; the interface leaves
// room for richer multimodal parts without reopening the Event taxonomy.
type ContentPart interface {
	isContentPart()
}

// TextContent is plain text content.
type TextContent struct {
	Text string `json:"text"`
}

func (TextContent) isContentPart() {}

// LLMMessage is the wire-level shape events convert to for token
// counting and for sending to the summarizer LLM.
type LLMMessage struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// Event is the sealed taxonomy of conversation events. Only the types in
// this package implement it: Message, SystemPrompt, SecurityPrompt,
// Action, Observation, AgentError, UserReject, CondensationRequest,
// Condensation, CondensationSummary.
type Event interface {
	EventID() EventID
	EventKind() EventKind
	EventCreatedAt() time.Time
	EventSource() EventSource
	sealedEvent()
}

// LLMConvertible is implemented by every Event variant the View Builder
// keeps in a derived view for LLM consumption. CondensationRequest and
// Condensation are pure markers and do not implement it.
type LLMConvertible interface {
	Event
	ToLLMMessage() LLMMessage
}

// EventBase carries the fields common to every event variant. Embed it in
// each concrete variant and set Kind in the variant's constructor.
type EventBase struct {
	ID        EventID     `json:"id"`
	Kind      EventKind   `json:"kind"`
	CreatedAt time.Time   `json:"timestamp"`
	Source    EventSource `json:"source"`
}

func (b EventBase) EventID() EventID            { return b.ID }
func (b EventBase) EventKind() EventKind        { return b.Kind }
func (b EventBase) EventCreatedAt() time.Time   { return b.CreatedAt }
func (b EventBase) EventSource() EventSource    { return b.Source }
func (EventBase) sealedEvent()                  {}

// Message is a plain conversation turn.
type Message struct {
	EventBase
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// NewMessage creates a Message event with a freshly assigned id.
func NewMessage(id EventID, source EventSource, role Role, content ...ContentPart) *Message {
	return &Message{
		EventBase: EventBase{ID: id, Kind: EventKindMessage, CreatedAt: time.Now(), Source: source},
		Role:      role,
		Content:   content,
	}
}

func (m *Message) ToLLMMessage() LLMMessage {
	return LLMMessage{Role: m.Role, Content: m.Content}
}

// messageWire is Message's JSON shape with Content narrowed to the only
// ContentPart implementation this engine persists today.
type messageWire struct {
	EventBase
	Role    Role          `json:"role"`
	Content []TextContent `json:"content"`
}

// UnmarshalJSON recovers Content as the sealed ContentPart interface;
// encoding/json cannot do this automatically for an interface-typed slice.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.EventBase = wire.EventBase
	m.Role = wire.Role
	m.Content = make([]ContentPart, len(wire.Content))
	for i, tc := range wire.Content {
		m.Content[i] = tc
	}
	return nil
}

// SystemPrompt is the pinned instruction event carrying the agent's
// system prompt and the tool schemas offered to the LLM.
type SystemPrompt struct {
	EventBase
	Text        string            `json:"text"`
	ToolSchemas []json.RawMessage `json:"tool_schemas,omitempty"`
}

func NewSystemPrompt(id EventID, text string, toolSchemas ...json.RawMessage) *SystemPrompt {
	return &SystemPrompt{
		EventBase:   EventBase{ID: id, Kind: EventKindSystemPrompt, CreatedAt: time.Now(), Source: SourceAgent},
		Text:        text,
		ToolSchemas: toolSchemas,
	}
}

func (s *SystemPrompt) ToLLMMessage() LLMMessage {
	return LLMMessage{Role: RoleSystem, Content: []ContentPart{TextContent{Text: s.Text}}}
}

// SecurityPrompt is a system-role injection carrying security-analyzer
// instructions, kept separate from SystemPrompt so callers can swap or
// drop it independently.
type SecurityPrompt struct {
	EventBase
	Text string `json:"text"`
}

func NewSecurityPrompt(id EventID, text string) *SecurityPrompt {
	return &SecurityPrompt{
		EventBase: EventBase{ID: id, Kind: EventKindSecurityPrompt, CreatedAt: time.Now(), Source: SourceAgent},
		Text:      text,
	}
}

func (s *SecurityPrompt) ToLLMMessage() LLMMessage {
	return LLMMessage{Role: RoleSystem, Content: []ContentPart{TextContent{Text: s.Text}}}
}
