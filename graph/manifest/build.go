package manifest

import (
	"github.com/dshills/stategraph/graph"
)

// Schema builds the channel schema of the manifest.
func (m *Manifest) Schema() (*graph.Schema, error) {
	channels := make([]graph.Channel, 0, len(m.Channels))
	for _, spec := range m.Channels {
		ch, err := spec.channel()
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return graph.NewSchema(channels...)
}

// Build declares the manifest's graph on a new Builder, resolving every node
// and router through reg. Structural errors surface from Compile.
func (m *Manifest) Build(reg *Registry) (*graph.Builder, error) {
	schema, err := m.Schema()
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder(schema)
	for _, spec := range m.Nodes {
		n, err := reg.node(spec.use())
		if err != nil {
			return nil, err
		}
		b.AddNode(spec.Name, n)
	}
	for _, e := range m.Edges {
		b.AddEdge(sentinel(e.From), sentinel(e.To))
	}
	for _, c := range m.Conditional {
		rt, err := reg.router(c.Router)
		if err != nil {
			return nil, err
		}
		from := sentinel(c.From)
		if len(c.Paths) > 0 {
			paths := make(map[string]string, len(c.Paths))
			for label, target := range c.Paths {
				paths[label] = sentinel(target)
			}
			b.AddConditionalEdgesMap(from, rt, paths)
			continue
		}
		candidates := make([]string, len(c.Candidates))
		for i, name := range c.Candidates {
			candidates[i] = sentinel(name)
		}
		b.AddConditionalEdges(from, rt, candidates...)
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// Compile builds and compiles the manifest. opts are applied after the
// manifest's own options.
func (m *Manifest) Compile(reg *Registry, opts ...graph.Option) (*graph.CompiledGraph, error) {
	b, err := m.Build(reg)
	if err != nil {
		return nil, err
	}
	return b.Compile(append(m.Options(), opts...)...)
}

// Check compiles the manifest against placeholder implementations, reporting
// every structural error Compile would find. The returned graph can be
// inspected but fails if invoked.
func (m *Manifest) Check() (*graph.CompiledGraph, error) {
	return m.Compile(m.placeholders())
}
