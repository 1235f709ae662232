// Package emit delivers observability events produced while a graph runs.
package emit

// Event is a single observability event emitted during a graph run.
//
// The engine emits these messages:
//   - "graph_start", "graph_end", "graph_error": run lifecycle (Step is the
//     number of steps executed so far, NodeID is empty)
//   - "node_start", "node_end": a plain node executing
//   - "route": a router selecting the next node (Meta["target"])
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Step is the 1-based step number, or zero before the first node runs.
	Step int

	// NodeID identifies the node that emitted this event.
	// Empty string for run-level events.
	NodeID string

	// Msg is the event kind.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": Execution duration in milliseconds
	//   - "error": Error details
	//   - "update_keys": Channels written by a node
	//   - "target": Node selected by a router
	Meta map[string]interface{}
}

// Err returns the "error" metadata of the event, if any.
func (e Event) Err() (string, bool) {
	msg, ok := e.Meta["error"].(string)
	return msg, ok
}
