package condense

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/haasonsaas/condense/pkg/models"
)

// EventLog is an in-memory, append-only, mutex-serialized event sequence.
// It is the minimal persistence surface the Engine needs: callers append
// events as they occur and take an immutable snapshot whenever they need
// to derive a view.
type EventLog struct {
	mu     sync.RWMutex
	events []models.Event
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append adds an event to the end of the log.
func (l *EventLog) Append(e models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Snapshot returns a defensive copy of the log's current contents, safe
// to pass to DeriveView without holding the log's lock.
func (l *EventLog) Snapshot() []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of events currently in the log.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// eventEnvelope is the wire shape used to recover an event's concrete type
// from its `kind` discriminator before decoding the rest of its fields.
type eventEnvelope struct {
	Kind models.EventKind `json:"kind"`
}

// MarshalJSON serializes the log as a plain JSON array of its events. Each
// concrete event type already carries its own `kind` field (EventBase).
func (l *EventLog) MarshalJSON() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return json.Marshal(l.events)
}

// UnmarshalJSON restores a log from its serialized form, dispatching each
// element to its concrete Go type by `kind`.
func (l *EventLog) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return newMalformedEventError("event log is not a JSON array", err)
	}

	events := make([]models.Event, 0, len(raw))
	for i, item := range raw {
		e, err := decodeEvent(item)
		if err != nil {
			return newMalformedEventError(fmt.Sprintf("event %d", i), err)
		}
		events = append(events, e)
	}

	l.mu.Lock()
	l.events = events
	l.mu.Unlock()
	return nil
}

func decodeEvent(data []byte) (models.Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var target models.Event
	switch env.Kind {
	case models.EventKindMessage:
		target = &models.Message{}
	case models.EventKindSystemPrompt:
		target = &models.SystemPrompt{}
	case models.EventKindSecurityPrompt:
		target = &models.SecurityPrompt{}
	case models.EventKindAction:
		target = &models.Action{}
	case models.EventKindObservation:
		target = &models.Observation{}
	case models.EventKindAgentError:
		target = &models.AgentError{}
	case models.EventKindUserReject:
		target = &models.UserReject{}
	case models.EventKindCondensationRequest:
		target = &models.CondensationRequest{}
	case models.EventKindCondensation:
		target = &models.Condensation{}
	case models.EventKindCondensationSummary:
		target = &models.CondensationSummary{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return nil, err
	}
	return target, nil
}
