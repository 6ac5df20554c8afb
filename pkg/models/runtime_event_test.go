package models

import (
	"encoding/json"
	"testing"
)

func TestRuntimeEventType_Constants(t *testing.T) {
	tests := []struct {
		constant RuntimeEventType
		expected string
	}{
		{EventEnforcerDropped, "enforcer_dropped"},
		{EventFixpointExceeded, "fixpoint_exceeded"},
		{EventCondensationTriggered, "condensation_triggered"},
		{EventCondensationEmitted, "condensation_emitted"},
		{EventHardReset, "hard_reset"},
		{EventSummarizerFailed, "summarizer_failed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestRuntimeEvent_Struct(t *testing.T) {
	event := RuntimeEvent{
		Type:          EventFixpointExceeded,
		Message:       "enforcement loop hit the iteration cap",
		Iteration:     10,
		EventsDropped: 3,
		Meta:          map[string]any{"conversation_id": "conv-1"},
	}

	if event.Type != EventFixpointExceeded {
		t.Errorf("Type = %v, want %v", event.Type, EventFixpointExceeded)
	}
	if event.Iteration != 10 {
		t.Errorf("Iteration = %d, want 10", event.Iteration)
	}
	if event.EventsDropped != 3 {
		t.Errorf("EventsDropped = %d, want 3", event.EventsDropped)
	}
}

func TestRuntimeEvent_JSONRoundTrip(t *testing.T) {
	original := RuntimeEvent{
		Type:          EventCondensationEmitted,
		Message:       "condensation appended",
		Iteration:     1,
		EventsDropped: 12,
		Meta:          map[string]any{"summary_offset": float64(2)},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded RuntimeEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Type != original.Type {
		t.Errorf("Type = %v, want %v", decoded.Type, original.Type)
	}
	if decoded.EventsDropped != original.EventsDropped {
		t.Errorf("EventsDropped = %d, want %d", decoded.EventsDropped, original.EventsDropped)
	}
	if decoded.Meta["summary_offset"] != float64(2) {
		t.Errorf("Meta[summary_offset] = %v, want 2", decoded.Meta["summary_offset"])
	}
}

func TestNewRuntimeEvent(t *testing.T) {
	event := NewRuntimeEvent(EventHardReset)

	if event == nil {
		t.Fatal("event is nil")
	}
	if event.Type != EventHardReset {
		t.Errorf("Type = %v, want %v", event.Type, EventHardReset)
	}
}

func TestRuntimeEvent_WithMessage(t *testing.T) {
	event := NewRuntimeEvent(EventCondensationTriggered)
	result := event.WithMessage("Test message")

	if result != event {
		t.Error("WithMessage should return the same event")
	}
	if event.Message != "Test message" {
		t.Errorf("Message = %q, want %q", event.Message, "Test message")
	}
}

func TestRuntimeEvent_WithIteration(t *testing.T) {
	event := NewRuntimeEvent(EventFixpointExceeded)
	result := event.WithIteration(5)

	if result != event {
		t.Error("WithIteration should return the same event")
	}
	if event.Iteration != 5 {
		t.Errorf("Iteration = %d, want 5", event.Iteration)
	}
}

func TestRuntimeEvent_WithEventsDropped(t *testing.T) {
	event := NewRuntimeEvent(EventEnforcerDropped)
	result := event.WithEventsDropped(7)

	if result != event {
		t.Error("WithEventsDropped should return the same event")
	}
	if event.EventsDropped != 7 {
		t.Errorf("EventsDropped = %d, want 7", event.EventsDropped)
	}
}

func TestRuntimeEvent_WithMeta(t *testing.T) {
	t.Run("adds single meta field", func(t *testing.T) {
		event := NewRuntimeEvent(EventCondensationEmitted)
		result := event.WithMeta("key", "value")

		if result != event {
			t.Error("WithMeta should return the same event")
		}
		if event.Meta == nil {
			t.Fatal("Meta should be initialized")
		}
		if event.Meta["key"] != "value" {
			t.Errorf("Meta[key] = %v, want %q", event.Meta["key"], "value")
		}
	})

	t.Run("adds multiple meta fields", func(t *testing.T) {
		event := NewRuntimeEvent(EventCondensationEmitted).
			WithMeta("key1", "value1").
			WithMeta("key2", 42).
			WithMeta("key3", true)

		if event.Meta["key1"] != "value1" {
			t.Errorf("Meta[key1] = %v, want %q", event.Meta["key1"], "value1")
		}
		if event.Meta["key2"] != 42 {
			t.Errorf("Meta[key2] = %v, want 42", event.Meta["key2"])
		}
		if event.Meta["key3"] != true {
			t.Errorf("Meta[key3] = %v, want true", event.Meta["key3"])
		}
	})
}

func TestRuntimeEvent_Chaining(t *testing.T) {
	event := NewRuntimeEvent(EventEnforcerDropped).
		WithMessage("ToolCallMatching dropped unmatched events").
		WithIteration(3).
		WithEventsDropped(2).
		WithMeta("property", "ToolCallMatching")

	if event.Type != EventEnforcerDropped {
		t.Errorf("Type = %v, want %v", event.Type, EventEnforcerDropped)
	}
	if event.Message != "ToolCallMatching dropped unmatched events" {
		t.Errorf("Message = %q, want the expected text", event.Message)
	}
	if event.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", event.Iteration)
	}
	if event.EventsDropped != 2 {
		t.Errorf("EventsDropped = %d, want 2", event.EventsDropped)
	}
	if event.Meta["property"] != "ToolCallMatching" {
		t.Errorf("Meta[property] = %v, want %q", event.Meta["property"], "ToolCallMatching")
	}
}
