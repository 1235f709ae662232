package graph

import (
	"errors"
	"testing"
)

func graphErrorCode(t *testing.T, err error) string {
	t.Helper()
	var ge *GraphError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GraphError, got %T: %v", err, err)
	}
	return ge.Code
}

func TestBuilder_AddNode(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder) *Builder
		kind  error
		code  string
	}{
		{
			name:  "empty name",
			build: func(b *Builder) *Builder { return b.AddNode("", noop()) },
			kind:  ErrInvalidNode,
			code:  "INVALID_NODE",
		},
		{
			name:  "nil node",
			build: func(b *Builder) *Builder { return b.AddNode("a", nil) },
			kind:  ErrInvalidNode,
			code:  "INVALID_NODE",
		},
		{
			name:  "reserved START",
			build: func(b *Builder) *Builder { return b.AddNode(START, noop()) },
			kind:  ErrDuplicateNode,
			code:  "RESERVED_NODE",
		},
		{
			name:  "reserved END",
			build: func(b *Builder) *Builder { return b.AddNode(END, noop()) },
			kind:  ErrDuplicateNode,
			code:  "RESERVED_NODE",
		},
		{
			name:  "duplicate",
			build: func(b *Builder) *Builder { return b.AddNode("a", noop()).AddNode("a", noop()) },
			kind:  ErrDuplicateNode,
			code:  "DUPLICATE_NODE",
		},
		{
			name:  "invalid retry policy",
			build: func(b *Builder) *Builder { return b.AddNode("a", Retry(noop(), RetryPolicy{})) },
			kind:  ErrInvalidNode,
			code:  "INVALID_NODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build(NewBuilder(nil))
			if !errors.Is(b.Err(), tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, b.Err())
			}
			if code := graphErrorCode(t, b.Err()); code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, code)
			}
			if _, err := b.Compile(); !errors.Is(err, tt.kind) {
				t.Errorf("expected Compile to return %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestBuilder_FirstErrorWins(t *testing.T) {
	b := NewBuilder(nil).
		AddNode("", noop()).
		AddNode("a", noop()).
		AddNode("a", noop())

	if !errors.Is(b.Err(), ErrInvalidNode) {
		t.Errorf("expected first error ErrInvalidNode, got %v", b.Err())
	}
}

func TestBuilder_Frozen(t *testing.T) {
	b := NewBuilder(nil).
		AddNode("a", noop()).
		AddEdge(START, "a").
		AddEdge("a", END)

	if _, err := b.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	t.Run("second compile", func(t *testing.T) {
		if _, err := b.Compile(); !errors.Is(err, ErrGraphFrozen) {
			t.Errorf("expected ErrGraphFrozen, got %v", err)
		}
	})

	t.Run("mutation after compile", func(t *testing.T) {
		b.AddNode("b", noop())
		if !errors.Is(b.Err(), ErrGraphFrozen) {
			t.Errorf("expected ErrGraphFrozen, got %v", b.Err())
		}
	})
}

func TestBuilder_FailedCompileDoesNotFreeze(t *testing.T) {
	b := NewBuilder(nil).AddNode("a", noop()).AddEdge(START, "a")

	if _, err := b.Compile(); !errors.Is(err, ErrDeadEnd) {
		t.Fatalf("expected ErrDeadEnd, got %v", err)
	}

	b.AddEdge("a", END)
	if _, err := b.Compile(); err != nil {
		t.Errorf("expected compile to succeed after fixing the graph, got %v", err)
	}
}

func TestBuilder_InvalidOption(t *testing.T) {
	b := NewBuilder(nil).AddNode("a", noop()).AddEdge(START, "a").AddEdge("a", END)
	if _, err := b.Compile(WithMaxSteps(-1)); err == nil {
		t.Error("expected error for negative max steps")
	}
	if _, err := b.Compile(nil, WithMaxSteps(5)); err != nil {
		t.Errorf("expected nil options to be ignored, got %v", err)
	}
}

func TestCompile_Validation(t *testing.T) {
	route := Branch(func(State) string { return "b" })

	tests := []struct {
		name  string
		build func() *Builder
		opts  []Option
		kind  error
		code  string
		node  string
	}{
		{
			name: "unknown edge target",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddEdge(START, "a").AddEdge("a", "nonexistent")
			},
			kind: ErrInvalidEdge,
			code: "NODE_NOT_FOUND",
			node: "nonexistent",
		},
		{
			name: "unknown edge source",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddEdge(START, "a").AddEdge("a", END).AddEdge("ghost", "a")
			},
			kind: ErrInvalidEdge,
			code: "NODE_NOT_FOUND",
			node: "ghost",
		},
		{
			name: "edge from END",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddEdge(START, "a").AddEdge("a", END).AddEdge(END, "a")
			},
			kind: ErrInvalidEdge,
			code: "EDGE_FROM_END",
		},
		{
			name: "edge into START",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddEdge(START, "a").AddEdge("a", START)
			},
			kind: ErrInvalidEdge,
			code: "EDGE_TO_START",
		},
		{
			name: "two static edges",
			build: func() *Builder {
				return NewBuilder(nil).
					AddNode("a", noop()).AddNode("b", noop()).
					AddEdge(START, "a").AddEdge("a", "b").AddEdge("a", END).AddEdge("b", END)
			},
			kind: ErrInvalidEdge,
			code: "MULTIPLE_EDGES",
			node: "a",
		},
		{
			name: "static and conditional edge",
			build: func() *Builder {
				return NewBuilder(nil).
					AddNode("a", noop()).AddNode("b", noop()).
					AddEdge(START, "a").AddEdge("a", END).
					AddConditionalEdges("a", route, "b").AddEdge("b", END)
			},
			kind: ErrInvalidEdge,
			code: "MIXED_EDGES",
			node: "a",
		},
		{
			name: "unknown candidate",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddEdge(START, "a").
					AddConditionalEdges("a", route, "missing")
			},
			kind: ErrInvalidEdge,
			code: "NODE_NOT_FOUND",
			node: "missing",
		},
		{
			name: "undeclared candidates",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddNode("b", noop()).
					AddEdge(START, "a").AddConditionalEdges("a", route).AddEdge("b", END)
			},
			kind: ErrInvalidEdge,
			code: "UNDECLARED_CANDIDATES",
			node: "a",
		},
		{
			name: "node without outgoing edge",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddNode("b", noop()).
					AddEdge(START, "a").AddEdge("a", "b")
			},
			kind: ErrDeadEnd,
			code: "NO_OUTGOING_EDGE",
			node: "b",
		},
		{
			name: "no entry",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop()).AddEdge("a", END)
			},
			kind: ErrUnreachableGraph,
			code: "NO_ENTRY",
		},
		{
			name: "empty graph",
			build: func() *Builder {
				return NewBuilder(nil)
			},
			kind: ErrUnreachableGraph,
			code: "NO_ENTRY",
		},
		{
			name: "lone node without edges",
			build: func() *Builder {
				return NewBuilder(nil).AddNode("a", noop())
			},
			kind: ErrUnreachableGraph,
			code: "NO_ENTRY",
		},
		{
			name: "unconnected orphan",
			build: func() *Builder {
				return NewBuilder(nil).
					AddNode("a", noop()).AddNode("orphan", noop()).
					AddEdge(START, "a").AddEdge("a", END)
			},
			kind: ErrUnreachableGraph,
			code: "UNREACHABLE_NODE",
			node: "orphan",
		},
		{
			name: "orphan before dead end",
			build: func() *Builder {
				return NewBuilder(nil).
					AddNode("a", noop()).AddNode("b", noop()).AddNode("orphan", noop()).
					AddEdge(START, "a").AddEdge("a", "b")
			},
			kind: ErrUnreachableGraph,
			code: "UNREACHABLE_NODE",
			node: "orphan",
		},
		{
			name: "orphan node",
			build: func() *Builder {
				return NewBuilder(nil).
					AddNode("a", noop()).AddNode("orphan", noop()).
					AddEdge(START, "a").AddEdge("a", END).AddEdge("orphan", END)
			},
			kind: ErrUnreachableGraph,
			code: "UNREACHABLE_NODE",
			node: "orphan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.build().Compile(tt.opts...)
			if g != nil {
				t.Error("expected no compiled graph on error")
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			var ge *GraphError
			if !errors.As(err, &ge) {
				t.Fatalf("expected *GraphError, got %T", err)
			}
			if ge.Code != tt.code {
				t.Errorf("expected code %s, got %s (%v)", tt.code, ge.Code, err)
			}
			if tt.node != "" && ge.Node != tt.node {
				t.Errorf("expected error to name %q, got %q", tt.node, ge.Node)
			}
		})
	}
}

func TestCompile_UndeclaredRoutesAllowed(t *testing.T) {
	route := Branch(func(State) string { return "b" })
	g, err := NewBuilder(nil).
		AddNode("a", noop()).AddNode("b", noop()).
		AddEdge(START, "a").AddConditionalEdges("a", route).AddEdge("b", END).
		Compile(AllowUndeclaredRoutes())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, ok := g.Candidates("a"); ok {
		t.Error("expected undeclared candidates")
	}
}

func TestCompile_UndeclaredRoutesDeadEnd(t *testing.T) {
	route := Branch(func(State) string { return "b" })
	_, err := NewBuilder(nil).
		AddNode("a", noop()).AddNode("b", noop()).
		AddEdge(START, "a").AddConditionalEdges("a", route).
		Compile(AllowUndeclaredRoutes())
	if !errors.Is(err, ErrDeadEnd) {
		t.Fatalf("expected ErrDeadEnd, got %v", err)
	}
	var ge *GraphError
	if !errors.As(err, &ge) || ge.Node != "b" {
		t.Errorf("expected dead end at b, got %v", err)
	}
}

func TestCompile_RoutingOnlyNode(t *testing.T) {
	route := Branch(func(State) string { return "b" })
	g, err := NewBuilder(nil).
		AddNode("b", noop()).
		AddEdge(START, "decide").
		AddConditionalEdges("decide", route, "b", END).
		AddEdge("b", END).
		Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !g.IsRoutingOnly("decide") {
		t.Error("expected decide to be routing-only")
	}
	if g.IsRoutingOnly("b") {
		t.Error("expected b to be a plain node")
	}
}
