package manifest

import (
	"fmt"
	"slices"

	"github.com/dshills/stategraph/graph"
)

func (c ChannelSpec) channel() (graph.Channel, error) {
	switch c.Type {
	case "string":
		return buildChannel[string](c)
	case "bool":
		return buildChannel[bool](c)
	case "int":
		return buildChannel[int](c)
	case "float":
		return buildChannel[float64](c)
	case "", "any":
		return buildChannel[any](c)
	}
	return graph.Channel{}, fmt.Errorf("%w: channel %q: unknown type %q", ErrInvalidManifest, c.Name, c.Type)
}

func buildChannel[T any](c ChannelSpec) (graph.Channel, error) {
	var ch graph.Channel
	switch c.Merge {
	case "", "replace":
		ch = graph.LastValue[T](c.Name)
	case "coalesce":
		fallback, err := convert[T](c.Fallback)
		if err != nil {
			return graph.Channel{}, fmt.Errorf("%w: channel %q fallback: %v", ErrInvalidManifest, c.Name, err)
		}
		ch = graph.Coalesce(c.Name, fallback)
	case "append":
		ch = graph.Appender[T](c.Name)
	case "sum":
		add, ok := sum[T]()
		if !ok {
			return graph.Channel{}, fmt.Errorf("%w: channel %q: sum requires type int or float", ErrInvalidManifest, c.Name)
		}
		ch = graph.Accumulate(c.Name, add)
	default:
		return graph.Channel{}, fmt.Errorf("%w: channel %q: unknown merge %q", ErrInvalidManifest, c.Name, c.Merge)
	}

	if c.Default == nil {
		return ch, nil
	}
	if c.Merge == "append" {
		items, ok := c.Default.([]any)
		if !ok {
			return graph.Channel{}, fmt.Errorf("%w: channel %q: append default must be a list", ErrInvalidManifest, c.Name)
		}
		list := make([]T, 0, len(items))
		for _, item := range items {
			v, err := convert[T](item)
			if err != nil {
				return graph.Channel{}, fmt.Errorf("%w: channel %q default: %v", ErrInvalidManifest, c.Name, err)
			}
			list = append(list, v)
		}
		return ch.WithDefault(func() any { return slices.Clone(list) }), nil
	}
	v, err := convert[T](c.Default)
	if err != nil {
		return graph.Channel{}, fmt.Errorf("%w: channel %q default: %v", ErrInvalidManifest, c.Name, err)
	}
	return ch.WithDefault(func() any { return v }), nil
}

// convert coerces a decoded YAML scalar to T. YAML integers are accepted for
// float channels.
func convert[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	if i, ok := v.(int); ok {
		if f, ok := any(float64(i)).(T); ok {
			return f, nil
		}
	}
	return zero, fmt.Errorf("value %v has type %T, want %T", v, v, zero)
}

func sum[T any]() (func(a, b T) T, bool) {
	var zero T
	switch any(zero).(type) {
	case int:
		add := func(a, b int) int { return a + b }
		return any(add).(func(a, b T) T), true
	case float64:
		add := func(a, b float64) float64 { return a + b }
		return any(add).(func(a, b T) T), true
	}
	return nil, false
}
