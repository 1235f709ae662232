package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Update is a partial state mapping returned by a node. Each key must name a
// declared channel; its value is merged into the current snapshot through the
// channel's merge function. Keys absent from the Update are left unchanged.
type Update map[string]any

// State is an immutable snapshot of the shared state of one run.
//
// A State is produced by Schema.Initialize and replaced, never modified, by
// Schema.Merge. Field order follows the order channels were declared in the
// schema. A field without a default that has never been written is unset:
// Get reports false for it and it is omitted from Map and MarshalJSON.
//
// Values are shared, not deep-copied, between successive snapshots of the
// same run. Nodes must treat values they read as read-only.
type State struct {
	values map[string]any
	order  []string
}

// Get returns the value of a field and whether it is set.
func (s State) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Value returns the value of a field, or nil if it is unset.
func (s State) Value(name string) any {
	return s.values[name]
}

// Has reports whether a field is set.
func (s State) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Len returns the number of set fields.
func (s State) Len() int {
	return len(s.values)
}

// Keys returns the names of the set fields in schema declaration order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for _, name := range s.order {
		if _, ok := s.values[name]; ok {
			keys = append(keys, name)
		}
	}
	return keys
}

// Map returns a copy of the set fields.
func (s State) Map() map[string]any {
	if s.values == nil {
		return map[string]any{}
	}
	return maps.Clone(s.values)
}

// IsZero reports whether s is the zero State, as returned alongside errors.
func (s State) IsZero() bool {
	return s.values == nil && s.order == nil
}

// MarshalJSON encodes the set fields as a JSON object in declaration order.
func (s State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.values[name])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String renders the snapshot as {name: value, ...} for logs and debugging.
func (s State) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range s.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", name, s.values[name])
	}
	sb.WriteByte('}')
	return sb.String()
}

// Lookup returns the value of a field converted to T.
//
// It reports false when the field is unset or holds a value of another type.
//
// Example:
//
//	name, _ := graph.Lookup[string](state, "name")
func Lookup[T any](s State, name string) (T, bool) {
	var zero T
	v, ok := s.values[name]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
