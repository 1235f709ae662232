package graph

import (
	"maps"
	"slices"
)

// Schema is the ordered set of channels that defines the shape of the shared
// state. A Schema is immutable once created and may be shared by any number of
// graphs and concurrent runs.
type Schema struct {
	channels []Channel
	index    map[string]int
	order    []string
}

// NewSchema creates a schema from channel declarations.
//
// Returns a SchemaError if a channel has an empty name or a name is declared
// twice. Declaration order becomes the field order of every State.
func NewSchema(channels ...Channel) (*Schema, error) {
	s := &Schema{
		channels: make([]Channel, 0, len(channels)),
		index:    make(map[string]int, len(channels)),
		order:    make([]string, 0, len(channels)),
	}
	for _, ch := range channels {
		if ch.Name == "" {
			return nil, &SchemaError{Field: ch.Name, Msg: "channel name cannot be empty"}
		}
		if _, exists := s.index[ch.Name]; exists {
			return nil, &SchemaError{Field: ch.Name, Msg: "channel declared twice"}
		}
		s.index[ch.Name] = len(s.channels)
		s.channels = append(s.channels, ch)
		s.order = append(s.order, ch.Name)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It is intended for
// package-level schema declarations.
func MustSchema(channels ...Channel) *Schema {
	s, err := NewSchema(channels...)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the channel names in declaration order.
func (s *Schema) Names() []string {
	return slices.Clone(s.order)
}

// Channel returns the declaration of the named channel.
func (s *Schema) Channel(name string) (Channel, bool) {
	i, ok := s.index[name]
	if !ok {
		return Channel{}, false
	}
	return s.channels[i], true
}

// Initialize builds the initial snapshot of a run.
//
// For each channel the initial value is overrides[name] if present, else
// Default() if declared, else the field is unset. Overrides are not merged
// with defaults. Returns a SchemaError if overrides names an undeclared field
// or a channel rejects an override.
func (s *Schema) Initialize(overrides Update) (State, error) {
	if err := s.checkKnown(overrides); err != nil {
		return State{}, err
	}

	values := make(map[string]any, len(s.channels))
	for _, ch := range s.channels {
		if v, ok := overrides[ch.Name]; ok {
			if ch.Check != nil {
				if err := ch.Check(v); err != nil {
					return State{}, &SchemaError{Field: ch.Name, Msg: "invalid initial value", Cause: err}
				}
			}
			values[ch.Name] = v
			continue
		}
		if ch.Default != nil {
			values[ch.Name] = ch.Default()
		}
	}
	return State{values: values, order: s.order}, nil
}

// Merge applies a partial update to a snapshot and returns the new snapshot.
//
// Each key in update is combined with the current value through its channel's
// merge function; other fields are carried over unchanged. The input snapshot
// is not modified. Returns a SchemaError, and no partial result, if update
// names an undeclared field or a merge fails.
func (s *Schema) Merge(state State, update Update) (State, error) {
	if len(update) == 0 {
		return state, nil
	}
	if err := s.checkKnown(update); err != nil {
		return State{}, err
	}

	values := maps.Clone(state.values)
	if values == nil {
		values = make(map[string]any, len(update))
	}
	for _, ch := range s.channels {
		incoming, ok := update[ch.Name]
		if !ok {
			continue
		}
		merged, err := ch.merge(values[ch.Name], incoming)
		if err != nil {
			return State{}, &SchemaError{Field: ch.Name, Msg: "merge failed", Cause: err}
		}
		values[ch.Name] = merged
	}
	return State{values: values, order: s.order}, nil
}

// checkKnown reports the first undeclared key of u in sorted order.
func (s *Schema) checkKnown(u Update) error {
	for _, key := range slices.Sorted(maps.Keys(u)) {
		if _, ok := s.index[key]; !ok {
			return &SchemaError{Field: key, Msg: "no channel declared for field"}
		}
	}
	return nil
}
