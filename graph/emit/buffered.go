package emit

import (
	"slices"
	"sync"
)

// BufferedEmitter implements Emitter by storing events in memory, grouped by
// run ID.
//
// Use cases:
//   - Tests asserting on emitted events
//   - Post-run inspection in development
//
// Warning: every event is kept until Clear is called.
//
// Example:
//
//	buf := emit.NewBufferedEmitter()
//	g, _ := b.Compile(graph.WithEmitter(buf))
//	_, _ = g.Run(ctx, "run-001", nil)
//	routes := buf.HistoryWithFilter("run-001", emit.HistoryFilter{Msg: "route"})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events
	order  []string           // runIDs in first-seen order
}

// HistoryFilter specifies criteria for filtering run history. Set fields are
// combined with AND logic.
type HistoryFilter struct {
	NodeID  string // Filter by node ID (empty = no filter)
	Msg     string // Filter by message (empty = no filter)
	MinStep *int   // Minimum step number (nil = no filter)
	MaxStep *int   // Maximum step number (nil = no filter)
}

func (f HistoryFilter) matches(event Event) bool {
	if f.NodeID != "" && event.NodeID != f.NodeID {
		return false
	}
	if f.Msg != "" && event.Msg != f.Msg {
		return false
	}
	if f.MinStep != nil && event.Step < *f.MinStep {
		return false
	}
	if f.MaxStep != nil && event.Step > *f.MaxStep {
		return false
	}
	return true
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, seen := b.events[event.RunID]; !seen {
		b.order = append(b.order, event.RunID)
	}
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// History returns a copy of every event of a run in emission order. The
// result is empty, never nil, for an unknown run.
func (b *BufferedEmitter) History(runID string) []Event {
	return b.HistoryWithFilter(runID, HistoryFilter{})
}

// HistoryWithFilter returns the events of a run that match filter.
func (b *BufferedEmitter) HistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[runID] {
		if filter.matches(event) {
			result = append(result, event)
		}
	}
	return result
}

// Messages returns the Msg of every event of a run in emission order.
func (b *BufferedEmitter) Messages(runID string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msgs := make([]string, 0, len(b.events[runID]))
	for _, event := range b.events[runID] {
		msgs = append(msgs, event.Msg)
	}
	return msgs
}

// Runs returns the run IDs seen so far in first-seen order.
func (b *BufferedEmitter) Runs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.order)
}

// Clear removes the events of runID, or of every run when runID is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
		b.order = nil
		return
	}
	delete(b.events, runID)
	b.order = slices.DeleteFunc(b.order, func(id string) bool { return id == runID })
}
