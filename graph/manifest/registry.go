package manifest

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/stategraph/graph"
)

// Registry maps the implementation names used in a manifest to nodes and
// routers.
//
// Example:
//
//	reg := manifest.NewRegistry().
//	    Node("sayHello", sayHello).
//	    Router("routeHumanOrRobot", routeHumanOrRobot)
type Registry struct {
	nodes   map[string]graph.Node
	routers map[string]graph.Router
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:   make(map[string]graph.Node),
		routers: make(map[string]graph.Router),
	}
}

// Node registers a node implementation under name, replacing any previous one.
func (r *Registry) Node(name string, n graph.Node) *Registry {
	r.nodes[name] = n
	return r
}

// Router registers a router implementation under name.
func (r *Registry) Router(name string, rt graph.Router) *Registry {
	r.routers[name] = rt
	return r
}

func (r *Registry) node(name string) (graph.Node, error) {
	n, ok := r.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: no node implementation %q", ErrInvalidManifest, name)
	}
	return n, nil
}

func (r *Registry) router(name string) (graph.Router, error) {
	rt, ok := r.routers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no router implementation %q", ErrInvalidManifest, name)
	}
	return rt, nil
}

// errPlaceholder is returned by the implementations of a placeholder registry.
var errPlaceholder = errors.New("placeholder implementation cannot run")

// placeholders returns a registry with an implementation for every name the
// manifest uses. They fail when run; the registry only serves validation.
func (m *Manifest) placeholders() *Registry {
	reg := NewRegistry()
	node := graph.NodeFunc(func(context.Context, graph.State) (graph.Update, error) {
		return nil, errPlaceholder
	})
	router := graph.RouterFunc(func(context.Context, graph.State) (graph.Outcome, error) {
		return graph.Outcome{}, errPlaceholder
	})
	for _, n := range m.Nodes {
		reg.Node(n.use(), node)
	}
	for _, c := range m.Conditional {
		reg.Router(c.Router, router)
	}
	return reg
}

func (n NodeSpec) use() string {
	if n.Use != "" {
		return n.Use
	}
	return n.Name
}
