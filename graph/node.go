package graph

import "context"

// Sentinel node names. They are reserved: no node may be registered under
// either name. START has no incoming edges and END has no outgoing edges.
const (
	START = "__start__"
	END   = "__end__"
)

// Node represents a processing unit in the workflow graph.
// It receives the current snapshot, performs computation, and returns a
// partial state update to be merged via the channel schema.
//
// Nodes are the fundamental building blocks of a StateGraph workflow.
// Each node can:
//   - Read the current state
//   - Perform arbitrary work, including blocking calls to external services
//   - Return state modifications as an Update (nil or empty means no change)
//   - Fail, which aborts the whole run
//
// A node never chooses the next node; routing belongs to Router.
type Node interface {
	// Run executes the node's logic with the given context and state.
	Run(ctx context.Context, state State) (Update, error)
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	sayHello := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
//	    return graph.Update{"name": "Bill Nye"}, nil
//	})
type NodeFunc func(ctx context.Context, state State) (Update, error)

// Run implements the Node interface for NodeFunc.
func (f NodeFunc) Run(ctx context.Context, state State) (Update, error) {
	return f(ctx, state)
}

// Router selects the next node from the current state. Routers are attached
// to a node with Builder.AddConditionalEdges and run after that node's own
// update, if any, has been merged.
type Router interface {
	// Route returns the routing decision and an optional state update.
	Route(ctx context.Context, state State) (Outcome, error)
}

// RouterFunc is a function adapter that implements the Router interface.
type RouterFunc func(ctx context.Context, state State) (Outcome, error)

// Route implements the Router interface for RouterFunc.
func (f RouterFunc) Route(ctx context.Context, state State) (Outcome, error) {
	return f(ctx, state)
}

// OutcomeKind distinguishes the shapes a routing decision can take.
type OutcomeKind int

const (
	// OutcomeRoute selects a target and contributes no state.
	OutcomeRoute OutcomeKind = iota

	// OutcomeBoth merges an update before following the route.
	OutcomeBoth
)

// Outcome is the result of a Router: a target node name, optionally paired
// with a partial state update. The target itself is never merged into state.
//
// Build outcomes with Goto or GotoWith.
type Outcome struct {
	update Update
	target string
}

// Goto returns an Outcome that routes to the specified node or END.
func Goto(target string) Outcome {
	return Outcome{target: target}
}

// GotoWith returns an Outcome that merges update and then routes to target.
func GotoWith(update Update, target string) Outcome {
	return Outcome{update: update, target: target}
}

// Target returns the selected node name.
func (o Outcome) Target() string { return o.target }

// Update returns the partial state carried by the outcome, or nil.
func (o Outcome) Update() Update { return o.update }

// Kind reports whether the outcome carries a state update.
func (o Outcome) Kind() OutcomeKind {
	if len(o.update) > 0 {
		return OutcomeBoth
	}
	return OutcomeRoute
}

// Branch adapts a pure selection function into a Router.
//
// Example:
//
//	route := graph.Branch(func(s graph.State) string {
//	    if isHuman, _ := graph.Lookup[bool](s, "isHuman"); isHuman {
//	        return "humanNode"
//	    }
//	    return "robotNode"
//	})
func Branch(choose func(state State) string) RouterFunc {
	return func(_ context.Context, state State) (Outcome, error) {
		return Goto(choose(state)), nil
	}
}

// When builds a two-way Router from a Predicate: it routes to then when the
// predicate holds and to otherwise when it does not.
func When(pred Predicate, then, otherwise string) RouterFunc {
	return Branch(func(state State) string {
		if pred(state) {
			return then
		}
		return otherwise
	})
}
