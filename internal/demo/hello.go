// Package demo contains the example graphs served by the stategraph command.
package demo

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/manifest"
)

//go:embed hello.yaml
var helloYAML []byte

// HelloManifest returns the declaration of the hello graph.
func HelloManifest() (*manifest.Manifest, error) {
	return manifest.Load(bytes.NewReader(helloYAML))
}

// HelloRegistry returns the implementations the hello manifest refers to.
func HelloRegistry() *manifest.Registry {
	return manifest.NewRegistry().
		Node("sayHello", setNode(graph.Update{"name": "Bill Nye"})).
		Node("robotNode", setNode(graph.Update{"isHuman": true})).
		Node("passthrough", setNode(nil)).
		Router("routeHumanOrRobot", graph.When(func(s graph.State) bool {
			human, _ := graph.Lookup[bool](s, "isHuman")
			return human
		}, "humanNode", "robotNode"))
}

// Hello compiles the hello graph: sayHello renames the greeter, then routes
// to humanNode or robotNode depending on isHuman, and both end at sayBye.
func Hello(opts ...graph.Option) (*graph.CompiledGraph, error) {
	m, err := HelloManifest()
	if err != nil {
		return nil, err
	}
	return m.Compile(HelloRegistry(), opts...)
}

func setNode(u graph.Update) graph.Node {
	return graph.NodeFunc(func(_ context.Context, _ graph.State) (graph.Update, error) {
		return u, nil
	})
}
