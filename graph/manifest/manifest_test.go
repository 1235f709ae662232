package manifest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/stategraph/graph"
)

func set(u graph.Update) graph.Node {
	return graph.NodeFunc(func(context.Context, graph.State) (graph.Update, error) { return u, nil })
}

func helloRegistry() *Registry {
	return NewRegistry().
		Node("sayHello", set(graph.Update{"name": "Bill Nye"})).
		Node("robotNode", set(graph.Update{"isHuman": true})).
		Node("passthrough", set(nil)).
		Router("routeHumanOrRobot", graph.Branch(func(s graph.State) string {
			if human, _ := graph.Lookup[bool](s, "isHuman"); human {
				return "humanNode"
			}
			return "robotNode"
		}))
}

func TestLoadFile_Hello(t *testing.T) {
	m, err := LoadFile("testdata/hello.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	g, err := m.Compile(helloRegistry())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	final, err := g.Invoke(context.Background(), graph.Update{"name": "Anchit", "isHuman": false})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	want := map[string]any{"name": "Bill Nye", "isHuman": true}
	if diff := cmp.Diff(want, final.Map()); diff != "" {
		t.Errorf("final state mismatch (-want +got):\n%s", diff)
	}

	if c, ok := g.Candidates("sayHello"); !ok || len(c) != 2 {
		t.Errorf("expected declared candidates, got %v", c)
	}
}

func TestCompile_CounterChannels(t *testing.T) {
	m, err := LoadFile("testdata/counter.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	reg := NewRegistry().
		Node("tick", set(graph.Update{"count": 1, "trail": "tick", "ratio": 0.5})).
		Router("enter", graph.Branch(func(graph.State) string { return "go" })).
		Router("loop", graph.Branch(func(s graph.State) string {
			if n, _ := graph.Lookup[int](s, "count"); n < 3 {
				return "again"
			}
			return "done"
		}))
	g, err := m.Compile(reg)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for range 2 {
		final, err := g.Invoke(context.Background(), nil)
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		want := map[string]any{
			"count": 3,
			"trail": []string{"start", "tick", "tick", "tick"},
			"ratio": 0.5,
		}
		if diff := cmp.Diff(want, final.Map()); diff != "" {
			t.Errorf("final state mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestCompile_MaxStepsFromManifest(t *testing.T) {
	m, err := Load(strings.NewReader(`
name: spin
maxSteps: 3
channels: [{name: n, type: int, merge: sum}]
nodes: [{name: a}]
edges: [{from: START, to: a}]
conditionalEdges: [{from: a, router: forever, candidates: [a, END]}]
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	reg := NewRegistry().
		Node("a", set(graph.Update{"n": 1})).
		Router("forever", graph.Branch(func(graph.State) string { return "a" }))
	g, err := m.Compile(reg)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, err := g.Invoke(context.Background(), nil); !errors.Is(err, graph.ErrStepLimit) {
		t.Errorf("expected ErrStepLimit, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", ``, "empty document"},
		{"missing name", `nodes: [{name: a}]`, "Name"},
		{"unknown field", "name: x\nnodez: []", "nodez"},
		{"bad type", "name: x\nchannels: [{name: c, type: date}]", "Type"},
		{"bad merge", "name: x\nchannels: [{name: c, merge: max}]", "Merge"},
		{"negative steps", "name: x\nmaxSteps: -1", "MaxSteps"},
		{"empty edge", "name: x\nedges: [{from: a}]", "To"},
		{"candidates and paths", "name: x\nconditionalEdges: [{from: a, router: r, candidates: [b], paths: {x: b}}]", "Candidates"},
		{"duplicate channel", "name: x\nchannels: [{name: c}, {name: c}]", "duplicate channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Fatalf("expected ErrInvalidManifest, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSchema_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec ChannelSpec
	}{
		{"sum on string", ChannelSpec{Name: "c", Type: "string", Merge: "sum"}},
		{"default type", ChannelSpec{Name: "c", Type: "int", Default: "three"}},
		{"fallback type", ChannelSpec{Name: "c", Type: "bool", Merge: "coalesce", Fallback: 1}},
		{"append default not list", ChannelSpec{Name: "c", Type: "string", Merge: "append", Default: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{Name: "x", Channels: []ChannelSpec{tt.spec}}
			if _, err := m.Schema(); !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("expected ErrInvalidManifest, got %v", err)
			}
		})
	}
}

func TestBuild_MissingImplementation(t *testing.T) {
	m, err := LoadFile("testdata/hello.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if _, err := m.Build(NewRegistry()); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("expected missing node to fail, got %v", err)
	}

	reg := helloRegistry()
	delete(reg.routers, "routeHumanOrRobot")
	if _, err := m.Build(reg); err == nil || !strings.Contains(err.Error(), "routeHumanOrRobot") {
		t.Errorf("expected missing router to be named, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	m, err := LoadFile("testdata/hello.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	g, err := m.Check()
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !strings.Contains(g.Mermaid(), "sayHello -.-> robotNode;") {
		t.Errorf("expected conditional edge in diagram, got:\n%s", g.Mermaid())
	}
	if _, err := g.Invoke(context.Background(), nil); !errors.Is(err, errPlaceholder) {
		t.Errorf("expected placeholder failure, got %v", err)
	}

	broken, err := Load(strings.NewReader(`
name: broken
nodes: [{name: a}, {name: orphan}]
edges: [{from: START, to: a}, {from: a, to: END}]
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := broken.Check(); !errors.Is(err, graph.ErrUnreachableGraph) {
		t.Errorf("expected ErrUnreachableGraph, got %v", err)
	}
}
