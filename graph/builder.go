package graph

import (
	"maps"
	"slices"
)

// Builder accumulates a declarative, unvalidated graph description: the node
// registry, the edge table, and the channel schema.
//
// Builder methods are chainable. Errors are deferred: the first error is
// recorded, later calls are ignored, and the error is reported by Err and
// returned from Compile. A Builder is single-owner and not safe for
// concurrent use.
//
// Example:
//
//	g, err := graph.NewBuilder(schema).
//	    AddNode("sayHello", sayHello).
//	    AddNode("sayBye", sayBye).
//	    AddEdge(graph.START, "sayHello").
//	    AddEdge("sayHello", "sayBye").
//	    AddEdge("sayBye", graph.END).
//	    Compile()
type Builder struct {
	schema      *Schema
	nodes       map[string]Node
	nodeOrder   []string
	edges       []Edge
	conditional []conditionalEdge
	frozen      bool
	err         error
}

// NewBuilder creates an empty builder over the given schema. A nil schema is
// treated as a schema with no channels.
func NewBuilder(schema *Schema) *Builder {
	if schema == nil {
		schema = MustSchema()
	}
	return &Builder{
		schema: schema,
		nodes:  make(map[string]Node),
	}
}

// Err returns the first error recorded by a builder method, if any.
func (b *Builder) Err() error {
	return b.err
}

// fail records err unless an earlier error is already recorded.
func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// usable reports whether a mutation may proceed, recording ErrGraphFrozen
// when the builder has already been compiled.
func (b *Builder) usable() bool {
	if b.frozen {
		b.fail(graphErrorf(ErrGraphFrozen, "GRAPH_FROZEN", "", "builder was already compiled"))
		return false
	}
	return b.err == nil
}

// AddNode registers a plain node.
//
// Records ErrInvalidNode if name is empty, node is nil, or node has a
// Validate method that fails, and ErrDuplicateNode if name is already
// registered or is START or END.
func (b *Builder) AddNode(name string, node Node) *Builder {
	if !b.usable() {
		return b
	}
	if name == "" {
		return b.fail(graphErrorf(ErrInvalidNode, "INVALID_NODE", name, "node name cannot be empty"))
	}
	if node == nil {
		return b.fail(graphErrorf(ErrInvalidNode, "INVALID_NODE", name, "node %q cannot be nil", name))
	}
	if v, ok := node.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return b.fail(graphErrorf(ErrInvalidNode, "INVALID_NODE", name, "node %q: %v", name, err))
		}
	}
	if name == START || name == END {
		return b.fail(graphErrorf(ErrDuplicateNode, "RESERVED_NODE", name, "node name %q is reserved", name))
	}
	if _, exists := b.nodes[name]; exists {
		return b.fail(graphErrorf(ErrDuplicateNode, "DUPLICATE_NODE", name, "node %q already registered", name))
	}
	b.nodes[name] = node
	b.nodeOrder = append(b.nodeOrder, name)
	return b
}

// AddEdge registers a static edge. from may be START and to may be END.
// Endpoint validation happens in Compile so nodes may be added in any order.
func (b *Builder) AddEdge(from, to string) *Builder {
	if !b.usable() {
		return b
	}
	if from == "" || to == "" {
		return b.fail(graphErrorf(ErrInvalidEdge, "INVALID_EDGE", from, "edge endpoints cannot be empty"))
	}
	b.edges = append(b.edges, Edge{From: from, To: to})
	return b
}

// SetEntryPoint is shorthand for AddEdge(START, name).
func (b *Builder) SetEntryPoint(name string) *Builder {
	return b.AddEdge(START, name)
}

// SetFinishPoint is shorthand for AddEdge(name, END).
func (b *Builder) SetFinishPoint(name string) *Builder {
	return b.AddEdge(name, END)
}

// AddConditionalEdges attaches a router to from. The router's returned target
// selects the next node at run time.
//
// candidates declares every name the router may return (node names or END).
// Omitting candidates leaves the target set undeclared, which Compile accepts
// only with AllowUndeclaredRoutes.
//
// If from is not registered with AddNode (and is not START), it becomes a
// routing-only node: executing it runs just the router.
func (b *Builder) AddConditionalEdges(from string, router Router, candidates ...string) *Builder {
	if !b.usable() {
		return b
	}
	if from == "" {
		return b.fail(graphErrorf(ErrInvalidEdge, "INVALID_EDGE", from, "edge source cannot be empty"))
	}
	if router == nil {
		return b.fail(graphErrorf(ErrInvalidEdge, "INVALID_EDGE", from, "router for %q cannot be nil", from))
	}
	edge := conditionalEdge{from: from, router: router}
	if len(candidates) > 0 {
		edge.candidates = slices.Clone(candidates)
	}
	b.conditional = append(b.conditional, edge)
	return b
}

// AddConditionalEdgesMap attaches a router whose returned labels are
// translated through pathMap. The declared candidates are the values of
// pathMap. A label missing from pathMap fails the run with ErrInvalidRoute.
//
// Example:
//
//	b.AddConditionalEdgesMap("classify", router, map[string]string{
//	    "joke": "jokeNode",
//	    "fact": "factNode",
//	})
func (b *Builder) AddConditionalEdgesMap(from string, router Router, pathMap map[string]string) *Builder {
	if len(pathMap) == 0 {
		return b.AddConditionalEdges(from, router)
	}
	targets := slices.Sorted(maps.Values(pathMap))
	b.AddConditionalEdges(from, router, slices.Compact(targets)...)
	if b.err == nil {
		b.conditional[len(b.conditional)-1].pathMap = maps.Clone(pathMap)
	}
	return b
}

// Compile validates the declaration and produces an immutable CompiledGraph.
//
// Validation is performed once, in a fixed order: edges, then START, then
// reachability, then outgoing edges of reachable nodes. The first error found is returned and no graph is produced.
// A successful Compile freezes the builder; any later builder call records
// ErrGraphFrozen and a second Compile returns it.
func (b *Builder) Compile(opts ...Option) (*CompiledGraph, error) {
	if b.frozen {
		return nil, graphErrorf(ErrGraphFrozen, "GRAPH_FROZEN", "", "builder was already compiled")
	}
	if b.err != nil {
		return nil, b.err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	g, err := compile(b, cfg)
	if err != nil {
		return nil, err
	}
	b.frozen = true
	return g, nil
}
