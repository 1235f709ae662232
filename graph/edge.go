package graph

// Edge represents a static connection between two nodes in the workflow graph.
//
// From may be START and To may be END. Each node has at most one static edge,
// and a node with a static edge cannot also have a conditional edge.
type Edge struct {
	// From is the source node name.
	From string

	// To is the destination node name.
	To string
}

// conditionalEdge attaches a Router to a node. The router's decision selects
// the next node at run time.
type conditionalEdge struct {
	from   string
	router Router

	// candidates is the declared target set; nil means undeclared, which is
	// only accepted when compiled with AllowUndeclaredRoutes.
	candidates []string

	// pathMap translates router labels into node names when non-nil.
	pathMap map[string]string
}

// declared reports whether the edge names its possible targets up front.
func (c conditionalEdge) declared() bool {
	return c.candidates != nil
}

// Predicate is a function that evaluates state to decide between two routes.
//
// Predicates enable conditional routing based on workflow state through When.
// They should be pure functions (deterministic, no side effects).
//
// Common patterns:
//   - Boolean flag: Lookup[bool](s, "isHuman")
//   - Presence: s.Has("responseMsg")
//   - Threshold: score > 0.8
type Predicate func(state State) bool
