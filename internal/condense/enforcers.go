package condense

import (
	"sort"

	"github.com/haasonsaas/condense/pkg/models"
)

// Enforcer is a pure property over (current-view events, full-history
// events). Enforce returns the set of event ids that must be dropped from
// the view to restore the property; ManipulationIndices returns the
// boundary positions at which the view may be safely manipulated while
// the property holds. No enforcer may depend on another's output — the
// View Builder composes them via a fixpoint loop (see view.go).
type Enforcer interface {
	Name() string
	Enforce(viewEvents, allEvents []models.Event) map[models.EventID]struct{}
	ManipulationIndices(viewEvents, allEvents []models.Event) map[int]struct{}
}

func isAction(e models.Event) (*models.Action, bool) {
	a, ok := e.(*models.Action)
	return a, ok
}

func isObservationLike(e models.Event) (toolCallID string, ok bool) {
	switch v := e.(type) {
	case *models.Observation:
		return v.ToolCallID, true
	case *models.UserReject:
		return v.ToolCallID, true
	}
	return "", false
}

func isActionOrObservationLike(e models.Event) bool {
	if _, ok := isAction(e); ok {
		return true
	}
	_, ok := isObservationLike(e)
	return ok
}

func fullIndexSet(n int) map[int]struct{} {
	set := make(map[int]struct{}, n+1)
	for i := 0; i <= n; i++ {
		set[i] = struct{}{}
	}
	return set
}

// ---------------------------------------------------------------------
// ToolCallMatching (spec.md §4.1)
// ---------------------------------------------------------------------

// ToolCallMatching ensures every Action in the view has a matching
// Observation (or UserReject acting as one, per Open Question 1 in
// DESIGN.md), and vice versa. Matching is purely content-level: all
// boundaries are admissible manipulation points.
type ToolCallMatching struct{}

func (ToolCallMatching) Name() string { return "ToolCallMatching" }

func (ToolCallMatching) Enforce(viewEvents, _ []models.Event) map[models.EventID]struct{} {
	actionCalls := map[string]struct{}{}
	observedCalls := map[string]struct{}{}

	for _, e := range viewEvents {
		if a, ok := isAction(e); ok {
			actionCalls[a.ToolCallID] = struct{}{}
		}
		if callID, ok := isObservationLike(e); ok {
			observedCalls[callID] = struct{}{}
		}
	}

	drop := map[models.EventID]struct{}{}
	for _, e := range viewEvents {
		if a, ok := isAction(e); ok {
			if _, matched := observedCalls[a.ToolCallID]; !matched {
				drop[a.EventID()] = struct{}{}
			}
			continue
		}
		if callID, ok := isObservationLike(e); ok {
			if _, matched := actionCalls[callID]; !matched {
				drop[e.EventID()] = struct{}{}
			}
		}
	}
	return drop
}

func (ToolCallMatching) ManipulationIndices(viewEvents, _ []models.Event) map[int]struct{} {
	return fullIndexSet(len(viewEvents))
}

// ---------------------------------------------------------------------
// BatchAtomicity (spec.md §4.2)
// ---------------------------------------------------------------------

// batchSpan describes one LLM-response batch of Actions: its member ids
// and the index range ([min,max]) they span within a given event slice.
type batchSpan struct {
	responseID  string
	minIndex    int
	maxIndex    int
	hasThinking bool
	actionIDs   []models.EventID
}

// computeBatchSpans groups Actions in events by LLMResponseID, in order of
// first appearance, recording the index span each batch occupies.
func computeBatchSpans(events []models.Event) []batchSpan {
	byID := map[string]*batchSpan{}
	var order []string
	for i, e := range events {
		a, ok := isAction(e)
		if !ok {
			continue
		}
		b, exists := byID[a.LLMResponseID]
		if !exists {
			b = &batchSpan{responseID: a.LLMResponseID, minIndex: i, maxIndex: i}
			byID[a.LLMResponseID] = b
			order = append(order, a.LLMResponseID)
		}
		if i < b.minIndex {
			b.minIndex = i
		}
		if i > b.maxIndex {
			b.maxIndex = i
		}
		if a.HasThinking() {
			b.hasThinking = true
		}
		b.actionIDs = append(b.actionIDs, a.EventID())
	}
	spans := make([]batchSpan, 0, len(order))
	for _, id := range order {
		spans = append(spans, *byID[id])
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].minIndex < spans[j].minIndex })
	return spans
}

// BatchAtomicity preserves or drops whole batches of Actions sharing an
// LLMResponseID: if any member is missing from the view while others
// remain, the remaining members are dropped too.
type BatchAtomicity struct{}

func (BatchAtomicity) Name() string { return "BatchAtomicity" }

func (BatchAtomicity) Enforce(viewEvents, allEvents []models.Event) map[models.EventID]struct{} {
	groundTruth := computeBatchSpans(allEvents)
	inView := map[models.EventID]struct{}{}
	for _, e := range viewEvents {
		inView[e.EventID()] = struct{}{}
	}

	drop := map[models.EventID]struct{}{}
	for _, b := range groundTruth {
		present := 0
		missing := 0
		for _, id := range b.actionIDs {
			if _, ok := inView[id]; ok {
				present++
			} else {
				missing++
			}
		}
		if present > 0 && missing > 0 {
			for _, id := range b.actionIDs {
				if _, ok := inView[id]; ok {
					drop[id] = struct{}{}
				}
			}
		}
	}
	return drop
}

func (BatchAtomicity) ManipulationIndices(viewEvents, _ []models.Event) map[int]struct{} {
	indices := fullIndexSet(len(viewEvents))
	for _, b := range computeBatchSpans(viewEvents) {
		for p := b.minIndex + 1; p <= b.maxIndex; p++ {
			delete(indices, p)
		}
	}
	return indices
}

// ---------------------------------------------------------------------
// ToolLoopAtomicity (spec.md §4.3)
// ---------------------------------------------------------------------

// toolLoopRange is an inclusive event-index range [Start, End] identifying
// one maximal tool loop.
type toolLoopRange struct {
	Start int
	End   int
	ids   map[models.EventID]struct{}
}

// computeToolLoops walks batches sorted by min index. A batch whose
// actions carry thinking blocks starts a loop; the loop absorbs
// subsequent batches as long as only Action/Observation events separate
// them, then extends through any trailing Observation events.
func computeToolLoops(events []models.Event) []toolLoopRange {
	spans := computeBatchSpans(events)
	consumed := make([]bool, len(spans))

	var loops []toolLoopRange
	for i, b := range spans {
		if consumed[i] || !b.hasThinking {
			continue
		}
		consumed[i] = true
		loopStart := b.minIndex
		loopEnd := b.maxIndex

		for j := i + 1; j < len(spans); j++ {
			if consumed[j] {
				continue
			}
			next := spans[j]
			gapIsActionOrObservation := true
			for k := loopEnd + 1; k < next.minIndex; k++ {
				if !isActionOrObservationLike(events[k]) {
					gapIsActionOrObservation = false
					break
				}
			}
			if !gapIsActionOrObservation {
				break
			}
			loopEnd = next.maxIndex
			consumed[j] = true
		}

		for k := loopEnd + 1; k < len(events); k++ {
			if _, ok := isObservationLike(events[k]); !ok {
				break
			}
			loopEnd = k
		}

		ids := map[models.EventID]struct{}{}
		for k := loopStart; k <= loopEnd; k++ {
			ids[events[k].EventID()] = struct{}{}
		}
		loops = append(loops, toolLoopRange{Start: loopStart, End: loopEnd, ids: ids})
	}
	return loops
}

// ToolLoopAtomicity treats a tool loop (spec.md §3/§4.3) as an atomic
// unit: dropping part of a loop requires dropping the remainder.
type ToolLoopAtomicity struct{}

func (ToolLoopAtomicity) Name() string { return "ToolLoopAtomicity" }

func (ToolLoopAtomicity) Enforce(viewEvents, allEvents []models.Event) map[models.EventID]struct{} {
	inView := map[models.EventID]struct{}{}
	for _, e := range viewEvents {
		inView[e.EventID()] = struct{}{}
	}

	drop := map[models.EventID]struct{}{}
	for _, loop := range computeToolLoops(allEvents) {
		present := 0
		missing := 0
		for id := range loop.ids {
			if _, ok := inView[id]; ok {
				present++
			} else {
				missing++
			}
		}
		if present > 0 && missing > 0 {
			for id := range loop.ids {
				if _, ok := inView[id]; ok {
					drop[id] = struct{}{}
				}
			}
		}
	}
	return drop
}

func (ToolLoopAtomicity) ManipulationIndices(viewEvents, _ []models.Event) map[int]struct{} {
	indices := fullIndexSet(len(viewEvents))
	for _, loop := range computeToolLoops(viewEvents) {
		for p := loop.Start + 1; p <= loop.End; p++ {
			delete(indices, p)
		}
	}
	return indices
}

// DefaultEnforcers returns the enforcer list in the order the View
// Builder applies them: match tool calls first, then batch atomicity,
// then tool-loop atomicity (spec.md §4.4 step 5).
func DefaultEnforcers() []Enforcer {
	return []Enforcer{ToolCallMatching{}, BatchAtomicity{}, ToolLoopAtomicity{}}
}
