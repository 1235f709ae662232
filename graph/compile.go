package graph

import "slices"

// compile validates a builder's declaration and freezes it into a CompiledGraph.
//
// Checks run in a fixed order so the reported error is deterministic:
//  1. edges: endpoints exist, sentinel rules hold, at most one outgoing edge
//     per node, declared candidates exist
//  2. START has an outgoing edge
//  3. every node is reachable from START
//  4. every reachable node has an outgoing edge
func compile(b *Builder, cfg engineConfig) (*CompiledGraph, error) {
	g := &CompiledGraph{
		schema:      b.schema,
		nodes:       make(map[string]Node, len(b.nodes)),
		order:       slices.Clone(b.nodeOrder),
		static:      make(map[string]string),
		conditional: make(map[string]conditionalEdge),
		cfg:         cfg,
	}
	for name, node := range b.nodes {
		g.nodes[name] = node
	}

	// Routing-only nodes are conditional sources that were never registered.
	known := make(map[string]bool, len(b.nodes)+len(b.conditional))
	for name := range b.nodes {
		known[name] = true
	}
	for _, ce := range b.conditional {
		if ce.from == START || ce.from == END || known[ce.from] {
			continue
		}
		known[ce.from] = true
		g.order = append(g.order, ce.from)
	}

	if err := g.validateEdges(b, known); err != nil {
		return nil, err
	}
	if err := g.validateStart(); err != nil {
		return nil, err
	}
	reachable, err := g.validateReachability()
	if err != nil {
		return nil, err
	}
	if err := g.validateDeadEnds(reachable); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *CompiledGraph) validateEdges(b *Builder, known map[string]bool) error {
	for _, e := range b.edges {
		if e.From == END {
			return graphErrorf(ErrInvalidEdge, "EDGE_FROM_END", END, "END has no outgoing edges (edge to %q)", e.To)
		}
		if e.To == START {
			return graphErrorf(ErrInvalidEdge, "EDGE_TO_START", e.From, "START has no incoming edges (edge from %q)", e.From)
		}
		if e.From != START && !known[e.From] {
			return graphErrorf(ErrInvalidEdge, "NODE_NOT_FOUND", e.From, "edge from unknown node %q", e.From)
		}
		if e.To != END && !known[e.To] {
			return graphErrorf(ErrInvalidEdge, "NODE_NOT_FOUND", e.To, "edge to unknown node %q", e.To)
		}
		if prev, exists := g.static[e.From]; exists {
			return graphErrorf(ErrInvalidEdge, "MULTIPLE_EDGES", e.From,
				"node %q already has a static edge to %q", e.From, prev)
		}
		g.static[e.From] = e.To
	}

	for _, ce := range b.conditional {
		if ce.from == END {
			return graphErrorf(ErrInvalidEdge, "EDGE_FROM_END", END, "END has no outgoing edges")
		}
		if _, exists := g.conditional[ce.from]; exists {
			return graphErrorf(ErrInvalidEdge, "MULTIPLE_EDGES", ce.from,
				"node %q already has a conditional edge", ce.from)
		}
		if to, exists := g.static[ce.from]; exists {
			return graphErrorf(ErrInvalidEdge, "MIXED_EDGES", ce.from,
				"node %q has both a static edge to %q and a conditional edge", ce.from, to)
		}
		if !ce.declared() && !g.cfg.allowUndeclared {
			return graphErrorf(ErrInvalidEdge, "UNDECLARED_CANDIDATES", ce.from,
				"conditional edge from %q must declare its candidates", ce.from)
		}
		for _, c := range ce.candidates {
			if c == START {
				return graphErrorf(ErrInvalidEdge, "EDGE_TO_START", ce.from,
					"START cannot be a route candidate of %q", ce.from)
			}
			if c != END && !known[c] {
				return graphErrorf(ErrInvalidEdge, "NODE_NOT_FOUND", c,
					"conditional edge from %q names unknown candidate %q", ce.from, c)
			}
		}
		g.conditional[ce.from] = ce
	}
	return nil
}

func (g *CompiledGraph) validateStart() error {
	if !g.hasOutgoing(START) {
		return graphErrorf(ErrUnreachableGraph, "NO_ENTRY", START, "START has no outgoing edge")
	}
	return nil
}

// validateReachability walks static edges and declared candidates from START
// and returns the set of visited nodes. Reaching an undeclared router means any
// node may follow, so every node is then assumed reachable.
func (g *CompiledGraph) validateReachability() (map[string]bool, error) {
	visited := map[string]bool{START: true}
	queue := []string{START}
	open := false
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		var next []string
		if to, ok := g.static[node]; ok {
			next = append(next, to)
		}
		if ce, ok := g.conditional[node]; ok {
			if !ce.declared() {
				open = true
			}
			next = append(next, ce.candidates...)
		}
		for _, n := range next {
			if n == END || visited[n] {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}
	for _, name := range g.order {
		if visited[name] {
			continue
		}
		if open {
			visited[name] = true
			continue
		}
		return nil, graphErrorf(ErrUnreachableGraph, "UNREACHABLE_NODE", name,
			"node %q is not reachable from START", name)
	}
	return visited, nil
}

func (g *CompiledGraph) validateDeadEnds(reachable map[string]bool) error {
	for _, name := range g.order {
		if reachable[name] && !g.hasOutgoing(name) {
			return graphErrorf(ErrDeadEnd, "NO_OUTGOING_EDGE", name, "node %q has no outgoing edge", name)
		}
	}
	return nil
}

func (g *CompiledGraph) hasOutgoing(name string) bool {
	if _, ok := g.static[name]; ok {
		return true
	}
	_, ok := g.conditional[name]
	return ok
}
