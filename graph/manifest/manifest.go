// Package manifest declares graphs in YAML.
//
// A manifest names the channels, nodes, and edges of a graph. Node and router
// behavior is code: manifest entries refer to implementations by name through
// a Registry.
//
//	name: hello
//	channels:
//	  - {name: name, type: string, default: Ada Lovelace}
//	  - {name: isHuman, type: bool, merge: coalesce, fallback: false}
//	nodes:
//	  - name: sayHello
//	edges:
//	  - {from: START, to: sayHello}
//	  - {from: sayHello, to: END}
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dshills/stategraph/graph"
)

// ErrInvalidManifest is wrapped by every structural manifest error.
var ErrInvalidManifest = errors.New("invalid manifest")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Manifest is the YAML form of a graph declaration.
type Manifest struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description,omitempty"`

	// MaxSteps overrides graph.DefaultMaxSteps when set.
	MaxSteps *int `yaml:"maxSteps,omitempty" validate:"omitempty,gte=0"`

	// AllowUndeclaredRoutes permits conditional edges without candidates.
	AllowUndeclaredRoutes bool `yaml:"allowUndeclaredRoutes,omitempty"`

	Channels    []ChannelSpec     `yaml:"channels" validate:"dive"`
	Nodes       []NodeSpec        `yaml:"nodes" validate:"dive"`
	Edges       []EdgeSpec        `yaml:"edges" validate:"dive"`
	Conditional []ConditionalSpec `yaml:"conditionalEdges" validate:"dive"`
}

// ChannelSpec declares one state channel.
//
// Merge kinds: replace (default) keeps the last write; coalesce keeps the
// last non-null write, else Fallback; append collects writes into a list;
// sum adds int or float writes.
type ChannelSpec struct {
	Name     string `yaml:"name" validate:"required"`
	Type     string `yaml:"type,omitempty" validate:"omitempty,oneof=string bool int float any"`
	Merge    string `yaml:"merge,omitempty" validate:"omitempty,oneof=replace coalesce append sum"`
	Default  any    `yaml:"default,omitempty"`
	Fallback any    `yaml:"fallback,omitempty"`
}

// NodeSpec declares a plain node. Use names the registry entry and defaults
// to Name, so one implementation may back several nodes.
type NodeSpec struct {
	Name string `yaml:"name" validate:"required"`
	Use  string `yaml:"use,omitempty"`
}

// EdgeSpec declares a static edge. START and END may be written as is or as
// their sentinel values.
type EdgeSpec struct {
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to" validate:"required"`
}

// ConditionalSpec declares a router on From. Exactly one of Candidates or
// Paths declares the possible targets; with neither the edge is undeclared.
type ConditionalSpec struct {
	From       string            `yaml:"from" validate:"required"`
	Router     string            `yaml:"router" validate:"required"`
	Candidates []string          `yaml:"candidates,omitempty" validate:"excluded_with=Paths,dive,required"`
	Paths      map[string]string `yaml:"paths,omitempty" validate:"dive,keys,required,endkeys,required"`
}

// Load decodes and validates a manifest. Unknown YAML fields are rejected.
func Load(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads a manifest from path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks field-level rules. Graph structure is checked by Compile.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fieldPath(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	seen := make(map[string]bool, len(m.Channels))
	for _, c := range m.Channels {
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate channel %q", ErrInvalidManifest, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Options returns the compile options the manifest declares.
func (m *Manifest) Options() []graph.Option {
	var opts []graph.Option
	if m.MaxSteps != nil {
		opts = append(opts, graph.WithMaxSteps(*m.MaxSteps))
	}
	if m.AllowUndeclaredRoutes {
		opts = append(opts, graph.AllowUndeclaredRoutes())
	}
	return opts
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// sentinel maps the manifest spellings of START and END.
func sentinel(name string) string {
	switch name {
	case "START":
		return graph.START
	case "END":
		return graph.END
	}
	return name
}
