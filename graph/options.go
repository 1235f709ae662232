package graph

import (
	"fmt"

	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/store"
)

// DefaultMaxSteps is the step limit applied when WithMaxSteps is not given.
const DefaultMaxSteps = 25

// Option is a functional option for configuring a CompiledGraph.
//
// Options are passed to Builder.Compile and fixed for the lifetime of the
// compiled graph:
//   - Chainable: g, err := b.Compile(WithMaxSteps(50), WithEmitter(e)).
//   - Self-documenting: Option names clearly describe their purpose.
//   - Optional: Only specify the configuration you need.
type Option func(*engineConfig) error

// engineConfig is an internal struct used to collect options before applying them to a CompiledGraph.
// This indirection allows validation and composition of options.
type engineConfig struct {
	maxSteps        int
	emitter         emit.Emitter
	metrics         *PrometheusMetrics
	store           store.Store
	allowUndeclared bool
}

func defaultConfig() engineConfig {
	return engineConfig{maxSteps: DefaultMaxSteps}
}

// WithMaxSteps limits the number of node executions in a single run.
//
// Default: DefaultMaxSteps. Set to 0 to disable the limit.
//
// Conditional edges may form cycles (A → router → A). The step limit is the
// only protection against a router that never selects an exit. When the limit
// is exceeded the run fails with ErrStepLimit.
//
// Example:
//
//	g, err := b.Compile(graph.WithMaxSteps(100))
func WithMaxSteps(n int) Option {
	return func(cfg *engineConfig) error {
		if n < 0 {
			return fmt.Errorf("graph: max steps cannot be negative: %d", n)
		}
		cfg.maxSteps = n
		return nil
	}
}

// WithEmitter sets the observability event receiver.
//
// Default: none (events are dropped).
//
// Example:
//
//	g, err := b.Compile(graph.WithEmitter(emit.NewLogEmitter(os.Stderr, true)))
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	g, err := b.Compile(graph.WithMetrics(graph.NewPrometheusMetrics(registry)))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = metrics
		return nil
	}
}

// WithStore records the snapshot produced by every step into s.
//
// The store is a write-only audit trail: runs never read from it and a run
// never resumes from a recorded step. A failing store aborts the run with
// ErrStore.
//
// Example:
//
//	st, _ := store.NewSQLiteStore("./runs.db")
//	g, err := b.Compile(graph.WithStore(st))
func WithStore(s store.Store) Option {
	return func(cfg *engineConfig) error {
		cfg.store = s
		return nil
	}
}

// AllowUndeclaredRoutes accepts conditional edges registered without a
// candidate set.
//
// Default: false; Compile rejects such edges with ErrInvalidEdge.
//
// With this option the targets of an undeclared router are validated only
// when the router returns them, and reachability checks assume every node may
// be reached through it. Prefer declaring candidates.
func AllowUndeclaredRoutes() Option {
	return func(cfg *engineConfig) error {
		cfg.allowUndeclared = true
		return nil
	}
}
