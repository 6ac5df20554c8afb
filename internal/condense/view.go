package condense

import (
	"log/slog"

	"github.com/haasonsaas/condense/pkg/models"
)

// maxFixpointIterations bounds the property-enforcement loop. Hitting the
// cap is logged as a warning (spec.md §4.4/§7 FixpointExceeded) but never
// raises: the view is returned in its last, possibly-non-fixpoint state.
const maxFixpointIterations = 10

// ManipulationIndices is the set of boundary positions in a View's events
// at which callers may safely insert or remove events without violating
// any enforced invariant.
type ManipulationIndices map[int]struct{}

// Contains reports whether i is an admissible manipulation boundary.
func (m ManipulationIndices) Contains(i int) bool {
	_, ok := m[i]
	return ok
}

// FindNext returns the smallest manipulation index greater than (or, if
// !strict, greater than or equal to) threshold, or threshold itself if no
// such index exists.
func (m ManipulationIndices) FindNext(threshold int, strict bool) int {
	best := threshold
	found := false
	for idx := range m {
		if (strict && idx > threshold) || (!strict && idx >= threshold) {
			if !found || idx < best {
				best = idx
				found = true
			}
		}
	}
	if !found {
		return threshold
	}
	return best
}

// View is the linearly ordered, budget-fittable projection of an event
// log produced by DeriveView. It is pure data: re-deriving it from the
// same events yields an equal View (up to the synthetic summary event's
// identity, which is deterministic but not itself appended to any log).
type View struct {
	Events                       []models.LLMConvertible
	UnhandledCondensationRequest bool
	Condensations                []*models.Condensation
	ManipulationIndices          ManipulationIndices
	// Iterations is the number of fixpoint passes the property enforcers
	// needed to converge; exposed for metrics, not a correctness signal.
	Iterations int
}

// Len returns the number of events in the view.
func (v *View) Len() int { return len(v.Events) }

// MostRecentCondensation returns the last condensation that contributed
// to this view, or nil if none did.
func (v *View) MostRecentCondensation() *models.Condensation {
	if len(v.Condensations) == 0 {
		return nil
	}
	return v.Condensations[len(v.Condensations)-1]
}

// SummaryEventIndex returns the index of the synthetic CondensationSummary
// event in Events, if one was inserted.
func (v *View) SummaryEventIndex() (int, bool) {
	for i, e := range v.Events {
		if _, ok := e.(*models.CondensationSummary); ok {
			return i, true
		}
	}
	return 0, false
}

// SummaryEvent returns the synthetic CondensationSummary event, if any.
func (v *View) SummaryEvent() (*models.CondensationSummary, bool) {
	idx, ok := v.SummaryEventIndex()
	if !ok {
		return nil, false
	}
	summary, ok := v.Events[idx].(*models.CondensationSummary)
	return summary, ok
}

// Slice returns view[from:to], clamped to the view's bounds.
func (v *View) Slice(from, to int) []models.LLMConvertible {
	if from < 0 {
		from = 0
	}
	if to > len(v.Events) {
		to = len(v.Events)
	}
	if from >= to {
		return nil
	}
	return v.Events[from:to]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DeriveView implements the View Builder (spec.md §4.4): it is pure,
// deterministic, and idempotent on the same input. logger may be nil.
func DeriveView(events []models.Event, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}

	// Step 1: compute forgotten ids from condensations and requests.
	forgotten := map[models.EventID]struct{}{}
	var condensations []*models.Condensation
	for _, e := range events {
		if c, ok := e.(*models.Condensation); ok {
			condensations = append(condensations, c)
			for _, id := range c.ForgottenEventIDs {
				forgotten[id] = struct{}{}
			}
			forgotten[c.EventID()] = struct{}{}
		}
		if req, ok := e.(*models.CondensationRequest); ok {
			forgotten[req.EventID()] = struct{}{}
		}
	}

	// Step 2: select kept, LLM-convertible events.
	var kept []models.LLMConvertible
	for _, e := range events {
		if _, isForgotten := forgotten[e.EventID()]; isForgotten {
			continue
		}
		if conv, ok := e.(models.LLMConvertible); ok {
			kept = append(kept, conv)
		}
	}

	// Step 3: insert the most recent summary at its stored offset.
	for i := len(events) - 1; i >= 0; i-- {
		c, ok := events[i].(*models.Condensation)
		if !ok {
			continue
		}
		if c.HasSummary() {
			offset := clamp(*c.SummaryOffset, 0, len(kept))
			summaryID := models.EventID(string(c.EventID()) + ":summary")
			summary := models.NewCondensationSummary(summaryID, *c.Summary)
			kept = append(kept, nil)
			copy(kept[offset+1:], kept[offset:])
			kept[offset] = summary
			break
		}
	}

	// Step 4: detect an unhandled condensation request.
	unhandled := false
	for i := len(events) - 1; i >= 0; i-- {
		if _, ok := events[i].(*models.Condensation); ok {
			break
		}
		if _, ok := events[i].(*models.CondensationRequest); ok {
			unhandled = true
			break
		}
	}

	// Step 5: enforce properties to a fixpoint.
	enforcers := DefaultEnforcers()
	viewEvents := make([]models.Event, len(kept))
	for i, e := range kept {
		viewEvents[i] = e.(models.Event)
	}

	converged := false
	iterations := 0
	for iteration := 0; iteration < maxFixpointIterations; iteration++ {
		iterations = iteration + 1
		var dropped map[models.EventID]struct{}
		var droppedBy string
		for _, enforcer := range enforcers {
			d := enforcer.Enforce(viewEvents, events)
			if len(d) > 0 {
				dropped = d
				droppedBy = enforcer.Name()
				break
			}
		}
		if len(dropped) == 0 {
			converged = true
			break
		}
		logger.Debug("condense: enforcer dropped events",
			slog.Int("iteration", iteration+1),
			slog.String("enforcer", droppedBy),
			slog.Int("count", len(dropped)),
		)
		filtered := viewEvents[:0:0]
		for _, e := range viewEvents {
			if _, isDropped := dropped[e.EventID()]; !isDropped {
				filtered = append(filtered, e)
			}
		}
		viewEvents = filtered
	}
	if !converged {
		logger.Warn("condense: property enforcement loop reached max iterations",
			slog.Int("max_iterations", maxFixpointIterations),
		)
	}

	finalEvents := make([]models.LLMConvertible, len(viewEvents))
	for i, e := range viewEvents {
		finalEvents[i] = e.(models.LLMConvertible)
	}

	// Step 6: compute manipulation indices as the intersection across enforcers.
	var indices ManipulationIndices
	if len(finalEvents) == 0 {
		indices = ManipulationIndices{0: {}}
	} else {
		for i, enforcer := range enforcers {
			idx := enforcer.ManipulationIndices(viewEvents, events)
			if i == 0 {
				indices = ManipulationIndices(idx)
				continue
			}
			for p := range indices {
				if _, ok := idx[p]; !ok {
					delete(indices, p)
				}
			}
		}
	}

	return &View{
		Events:                       finalEvents,
		UnhandledCondensationRequest: unhandled,
		Condensations:                condensations,
		ManipulationIndices:          indices,
		Iterations:                   iterations,
	}
}
