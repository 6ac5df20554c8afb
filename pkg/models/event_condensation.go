package models

import "time"

// CondensationRequest is a marker event asking the rolling condenser to
// produce a Condensation. It never appears in a derived view; the View
// Builder forgets it unconditionally (see DeriveView).
type CondensationRequest struct {
	EventBase
}

func NewCondensationRequest(id EventID, source EventSource) *CondensationRequest {
	return &CondensationRequest{
		EventBase: EventBase{ID: id, Kind: EventKindCondensationRequest, CreatedAt: time.Now(), Source: source},
	}
}

// Condensation is the receipt of a condensation operation: a set of prior
// event ids to forget, and optionally a replacement summary placed at a
// chosen offset. SummaryOffset == 0 denotes a hard reset: the summary
// subsumes all prior content.
type Condensation struct {
	EventBase
	ForgottenEventIDs []EventID `json:"forgotten_event_ids"`
	Summary           *string   `json:"summary,omitempty"`
	SummaryOffset     *int      `json:"summary_offset,omitempty"`
	LLMResponseID     string    `json:"llm_response_id,omitempty"`
}

func NewCondensation(id EventID, forgotten []EventID) *Condensation {
	return &Condensation{
		EventBase:         EventBase{ID: id, Kind: EventKindCondensation, CreatedAt: time.Now(), Source: SourceAgent},
		ForgottenEventIDs: forgotten,
	}
}

func (c *Condensation) WithSummary(summary string, offset int) *Condensation {
	c.Summary = &summary
	c.SummaryOffset = &offset
	return c
}

func (c *Condensation) WithLLMResponseID(id string) *Condensation {
	c.LLMResponseID = id
	return c
}

// IsHardReset reports whether this condensation's summary subsumes the
// entire prior history.
func (c *Condensation) IsHardReset() bool {
	return c.SummaryOffset != nil && *c.SummaryOffset == 0
}

// HasSummary reports whether this condensation carries a replacement summary.
func (c *Condensation) HasSummary() bool {
	return c.Summary != nil && c.SummaryOffset != nil
}

// CondensationSummary is a synthetic event inserted by the View Builder
// at a Condensation's stored offset. It exists only inside a View and is
// never appended to the event log.
type CondensationSummary struct {
	EventBase
	Summary string `json:"summary"`
}

// NewCondensationSummary constructs the synthetic summary event the View
// Builder inserts into a derived view. It deliberately has no stable id
// of its own significance beyond uniqueness within the view.
func NewCondensationSummary(id EventID, summary string) *CondensationSummary {
	return &CondensationSummary{
		EventBase: EventBase{ID: id, Kind: EventKindCondensationSummary, CreatedAt: time.Now(), Source: SourceAgent},
		Summary:   summary,
	}
}

func (s *CondensationSummary) ToLLMMessage() LLMMessage {
	return LLMMessage{
		Role:    RoleUser,
		Content: []ContentPart{TextContent{Text: "Summary of earlier conversation:\n" + s.Summary}},
	}
}
