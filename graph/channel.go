package graph

import (
	"fmt"
	"slices"
)

// MergeFunc combines the current value of a channel with an incoming write.
//
// prev is nil when the channel is unset. Merge functions must be pure: the
// engine applies writes in execution order and never retries or reorders them,
// so the final value of a channel is the left fold of MergeFunc over its writes.
type MergeFunc func(prev, incoming any) (any, error)

// Channel declares one named field of the shared state.
//
// Example:
//
//	name := graph.LastValue[string]("name").WithDefault(func() any { return "Ada Lovelace" })
//	isHuman := graph.Coalesce("isHuman", false)
//	schema, err := graph.NewSchema(name, isHuman)
type Channel struct {
	// Name is the field name nodes read and write.
	Name string

	// Merge combines the previous value with an incoming write.
	// If nil, the incoming value replaces the previous one.
	Merge MergeFunc

	// Default produces the initial value when no override is supplied.
	// If nil, the field starts unset. Default is called once per run so
	// mutable defaults are never shared between runs.
	Default func() any

	// Check optionally validates values before they enter the state, both
	// initial overrides and node writes.
	Check func(v any) error
}

// WithDefault returns a copy of the channel with the given default producer.
func (c Channel) WithDefault(fn func() any) Channel {
	c.Default = fn
	return c
}

func (c Channel) merge(prev, incoming any) (any, error) {
	if c.Check != nil {
		if err := c.Check(incoming); err != nil {
			return nil, err
		}
	}
	if c.Merge == nil {
		return incoming, nil
	}
	return c.Merge(prev, incoming)
}

// LastValue declares a channel whose value is replaced by every write.
// Writes must hold a T.
func LastValue[T any](name string) Channel {
	return Channel{
		Name:  name,
		Merge: func(_, incoming any) (any, error) { return incoming, nil },
		Check: checkType[T](false),
	}
}

// Coalesce declares a channel whose merge keeps the incoming value when it is
// non-nil, else the previous value when set, else fallback. A nil write
// therefore never clears the channel.
func Coalesce[T any](name string, fallback T) Channel {
	return Channel{
		Name: name,
		Merge: func(prev, incoming any) (any, error) {
			if incoming != nil {
				return incoming, nil
			}
			if prev != nil {
				return prev, nil
			}
			return fallback, nil
		},
		Check: checkType[T](true),
	}
}

// Appender declares a channel holding a []T. A write may be a single T or a
// []T; either is appended to the current slice. The previous slice is never
// modified in place.
func Appender[T any](name string) Channel {
	return Channel{
		Name: name,
		Merge: func(prev, incoming any) (any, error) {
			var cur []T
			if prev != nil {
				p, ok := prev.([]T)
				if !ok {
					return nil, fmt.Errorf("current value has type %T, want %T", prev, cur)
				}
				cur = p
			}
			switch in := incoming.(type) {
			case []T:
				return slices.Concat(cur, in), nil
			case T:
				return slices.Concat(cur, []T{in}), nil
			default:
				return nil, fmt.Errorf("cannot append value of type %T to %T", incoming, cur)
			}
		},
	}
}

// Accumulate declares a channel folded with a binary operator. The first write
// to an unset channel is stored as is; later writes are combined with op.
//
// Example:
//
//	steps := graph.Accumulate("steps", func(a, b int) int { return a + b })
func Accumulate[T any](name string, op func(prev, incoming T) T) Channel {
	return Channel{
		Name: name,
		Merge: func(prev, incoming any) (any, error) {
			in, ok := incoming.(T)
			if !ok {
				return nil, fmt.Errorf("cannot accumulate value of type %T into %T", incoming, in)
			}
			if prev == nil {
				return in, nil
			}
			p, ok := prev.(T)
			if !ok {
				return nil, fmt.Errorf("current value has type %T, want %T", prev, in)
			}
			return op(p, in), nil
		},
		Check: checkType[T](false),
	}
}

func checkType[T any](allowNil bool) func(any) error {
	return func(v any) error {
		if v == nil && allowNil {
			return nil
		}
		if _, ok := v.(T); !ok {
			var want T
			return fmt.Errorf("value has type %T, want %T", v, want)
		}
		return nil
	}
}
