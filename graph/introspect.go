package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Schema returns the channel schema the graph was compiled with.
func (g *CompiledGraph) Schema() *Schema {
	return g.schema
}

// Nodes returns all node names, plain and routing-only, in registration order.
func (g *CompiledGraph) Nodes() []string {
	return slices.Clone(g.order)
}

// HasNode checks if a node exists in the graph.
func (g *CompiledGraph) HasNode(name string) bool {
	return g.isNode(name)
}

// IsRoutingOnly reports whether name was created by a conditional edge rather
// than registered with AddNode.
func (g *CompiledGraph) IsRoutingOnly(name string) bool {
	_, plain := g.nodes[name]
	_, cond := g.conditional[name]
	return !plain && cond && name != START
}

// Successor returns the static edge target of a node, which may be END.
func (g *CompiledGraph) Successor(name string) (string, bool) {
	to, ok := g.static[name]
	return to, ok
}

// IsConditional returns true if the node has a conditional edge.
func (g *CompiledGraph) IsConditional(name string) bool {
	_, ok := g.conditional[name]
	return ok
}

// Candidates returns the declared route targets of a conditional node. It
// reports false when the node has no conditional edge or its targets are
// undeclared.
func (g *CompiledGraph) Candidates(name string) ([]string, bool) {
	ce, ok := g.conditional[name]
	if !ok || !ce.declared() {
		return nil, false
	}
	return slices.Clone(ce.candidates), true
}

// Mermaid renders the graph topology as a Mermaid flowchart. Static edges are
// solid arrows and conditional edges dotted; undeclared routers are drawn
// without targets.
func (g *CompiledGraph) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("graph TD;\n")
	fmt.Fprintf(&sb, "\t%s([%s]):::first\n", mermaidID(START), START)
	for _, name := range g.order {
		if g.IsRoutingOnly(name) {
			fmt.Fprintf(&sb, "\t%s{%s}\n", mermaidID(name), name)
			continue
		}
		fmt.Fprintf(&sb, "\t%s(%s)\n", mermaidID(name), name)
	}
	fmt.Fprintf(&sb, "\t%s([%s]):::last\n", mermaidID(END), END)

	for _, from := range append([]string{START}, g.order...) {
		if to, ok := g.static[from]; ok {
			fmt.Fprintf(&sb, "\t%s --> %s;\n", mermaidID(from), mermaidID(to))
		}
		ce, ok := g.conditional[from]
		if !ok {
			continue
		}
		// A target reached by several labels is drawn with the smallest one.
		labels := make(map[string]string, len(ce.pathMap))
		for _, label := range slices.Sorted(maps.Keys(ce.pathMap)) {
			if _, seen := labels[ce.pathMap[label]]; !seen {
				labels[ce.pathMap[label]] = label
			}
		}
		for _, c := range ce.candidates {
			if label, ok := labels[c]; ok && label != c {
				fmt.Fprintf(&sb, "\t%s -. %s .-> %s;\n", mermaidID(from), label, mermaidID(c))
				continue
			}
			fmt.Fprintf(&sb, "\t%s -.-> %s;\n", mermaidID(from), mermaidID(c))
		}
	}
	sb.WriteString("\tclassDef first fill-opacity:0\n")
	sb.WriteString("\tclassDef last fill:#bfb6fc\n")
	return sb.String()
}

func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
