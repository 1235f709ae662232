package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/store"
)

// CompiledGraph is the validated, immutable, executable form of a graph
// declaration.
//
// A CompiledGraph owns the node registry, the edge table, and the channel
// schema it was compiled from. It is read-only for its entire lifetime and
// safe to share across any number of concurrent Invoke calls. Each call
// builds and owns its own State; no field value is ever shared between runs
// except through channel defaults that return shared values.
//
// Execution within a run is sequential: at most one node executes at a time,
// and a node's work, including any blocking I/O, completes before the next
// node starts. The engine applies no per-node timeout; a node that never
// returns hangs its run unless it honors ctx or is wrapped with Timeout.
//
// Example:
//
//	g, err := builder.Compile()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	final, err := g.Invoke(ctx, graph.Update{"name": "Anchit", "isHuman": false})
type CompiledGraph struct {
	schema      *Schema
	nodes       map[string]Node
	order       []string
	static      map[string]string
	conditional map[string]conditionalEdge
	cfg         engineConfig
}

// Step describes one completed node execution within a run.
type Step struct {
	// RunID identifies the run.
	RunID string

	// Index is the 1-based position of the step within the run.
	Index int

	// Node is the node that executed.
	Node string

	// Update is the partial state contributed by the node and its router,
	// in the order they were merged.
	Update []Update

	// State is the snapshot after the step's updates were merged.
	State State

	// Next is the node selected to run after this one, possibly END.
	Next string
}

// Invoke runs the graph from START to END under a freshly generated run ID.
//
// The initial snapshot is built from overrides and channel defaults. On
// success Invoke returns the final snapshot. On failure it returns the zero
// State and an error; no partial state is ever returned. Errors from node
// functions are wrapped in *NodeError.
func (g *CompiledGraph) Invoke(ctx context.Context, overrides Update) (State, error) {
	return g.Run(ctx, uuid.NewString(), overrides)
}

// Run is like Invoke but uses the given run ID in events, metrics, and
// recorded steps.
func (g *CompiledGraph) Run(ctx context.Context, runID string, overrides Update) (State, error) {
	return g.execute(ctx, runID, overrides, nil)
}

// Stream runs the graph and yields every completed step in execution order.
//
// Iteration ends after the last step, or after yielding a single non-nil
// error. Breaking out of the loop stops the run before the next node starts.
//
// Example:
//
//	for step, err := range g.Stream(ctx, overrides) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(step.Node, step.State)
//	}
func (g *CompiledGraph) Stream(ctx context.Context, overrides Update) iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		stopped := false
		_, err := g.execute(ctx, uuid.NewString(), overrides, func(s Step) bool {
			if !yield(s, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Step{}, err)
		}
	}
}

// errStopped ends a streamed run whose consumer stopped iterating.
var errStopped = errors.New("stream stopped by consumer")

// execute is the executor loop shared by Run and Stream.
//
// Loop:
//  1. current = START, state = Initialize(overrides)
//  2. if current == END, return state
//  3. run the plain node registered under current (never for START) and merge its update
//  4. resolve the next node: run the router when current has a conditional
//     edge (merging its update, validating its target), else follow the
//     static edge, else fail with ErrDeadEnd
//  5. record the step and continue with the selected node
func (g *CompiledGraph) execute(ctx context.Context, runID string, overrides Update, onStep func(Step) bool) (State, error) {
	start := time.Now()
	g.cfg.metrics.invocationStarted()
	g.emit(emit.Event{RunID: runID, Msg: "graph_start"})

	final, steps, err := g.loop(ctx, runID, overrides, onStep)
	if errors.Is(err, errStopped) {
		err = nil
	}

	status := "success"
	if err != nil {
		status = "error"
		g.emit(emit.Event{RunID: runID, Step: steps, Msg: "graph_error", Meta: map[string]interface{}{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		}})
	} else {
		g.emit(emit.Event{RunID: runID, Step: steps, Msg: "graph_end", Meta: map[string]interface{}{
			"duration_ms": time.Since(start).Milliseconds(),
			"steps":       steps,
		}})
	}
	g.cfg.metrics.invocationFinished(status, time.Since(start))

	if err != nil {
		return State{}, err
	}
	return final, nil
}

func (g *CompiledGraph) loop(ctx context.Context, runID string, overrides Update, onStep func(Step) bool) (State, int, error) {
	state, err := g.schema.Initialize(overrides)
	if err != nil {
		return State{}, 0, err
	}

	current := START
	step := 0
	for current != END {
		if err := ctx.Err(); err != nil {
			return State{}, step, err
		}

		var updates []Update
		if current != START {
			step++
			if g.cfg.maxSteps > 0 && step > g.cfg.maxSteps {
				return State{}, step, graphErrorf(ErrStepLimit, "MAX_STEPS_EXCEEDED", current,
					"run exceeded %d steps", g.cfg.maxSteps)
			}

			if node, ok := g.nodes[current]; ok {
				update, err := g.runNode(ctx, runID, step, current, node, state)
				if err != nil {
					return State{}, step, err
				}
				if state, err = g.schema.Merge(state, update); err != nil {
					return State{}, step, err
				}
				if len(update) > 0 {
					updates = append(updates, update)
				}
			}
		}

		next, routeUpdate, err := g.resolveNext(ctx, runID, step, current, state)
		if err != nil {
			return State{}, step, err
		}
		if len(routeUpdate) > 0 {
			if state, err = g.schema.Merge(state, routeUpdate); err != nil {
				return State{}, step, err
			}
			updates = append(updates, routeUpdate)
		}

		if current != START {
			rec := Step{RunID: runID, Index: step, Node: current, Update: updates, State: state, Next: next}
			if err := g.record(ctx, rec); err != nil {
				return State{}, step, err
			}
			if onStep != nil && !onStep(rec) {
				return State{}, step, errStopped
			}
		}
		current = next
	}
	return state, step, nil
}

// runNode invokes a plain node, converting failures and panics into *NodeError.
func (g *CompiledGraph) runNode(ctx context.Context, runID string, step int, name string, node Node, state State) (update Update, err error) {
	g.emit(emit.Event{RunID: runID, Step: step, NodeID: name, Msg: "node_start"})
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			update, err = nil, &NodeError{NodeID: name, Cause: fmt.Errorf("panic: %v", r)}
		}
		status := "success"
		meta := map[string]interface{}{"duration_ms": time.Since(started).Milliseconds()}
		if err != nil {
			status = "error"
			meta["error"] = err.Error()
		} else if len(update) > 0 {
			meta["update_keys"] = updateKeys(update)
		}
		g.cfg.metrics.RecordStepLatency(name, time.Since(started), status)
		g.emit(emit.Event{RunID: runID, Step: step, NodeID: name, Msg: "node_end", Meta: meta})
	}()

	update, err = node.Run(ctx, state)
	if err != nil {
		return nil, &NodeError{NodeID: name, Cause: err}
	}
	return update, nil
}

// resolveNext determines the node that follows current.
func (g *CompiledGraph) resolveNext(ctx context.Context, runID string, step int, current string, state State) (string, Update, error) {
	ce, ok := g.conditional[current]
	if !ok {
		to, ok := g.static[current]
		if !ok {
			return "", nil, graphErrorf(ErrDeadEnd, "NO_ROUTE", current, "no outgoing edge from %q", current)
		}
		return to, nil, nil
	}

	outcome, err := g.runRouter(ctx, current, ce.router, state)
	if err != nil {
		return "", nil, err
	}

	label := outcome.Target()
	target := label
	if ce.pathMap != nil {
		mapped, ok := ce.pathMap[label]
		if !ok {
			return "", nil, graphErrorf(ErrInvalidRoute, "UNKNOWN_ROUTE", current,
				"router of %q returned unmapped label %q", current, label)
		}
		target = mapped
	}
	if err := g.checkTarget(current, ce, target); err != nil {
		return "", nil, err
	}

	g.cfg.metrics.RecordRoute(current, target)
	g.emit(emit.Event{RunID: runID, Step: step, NodeID: current, Msg: "route", Meta: map[string]interface{}{
		"target": target,
	}})
	return target, outcome.Update(), nil
}

func (g *CompiledGraph) runRouter(ctx context.Context, name string, router Router, state State) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &NodeError{NodeID: name, Cause: fmt.Errorf("router panic: %v", r)}
		}
	}()
	outcome, err = router.Route(ctx, state)
	if err != nil {
		return Outcome{}, &NodeError{NodeID: name, Cause: err}
	}
	return outcome, nil
}

func (g *CompiledGraph) checkTarget(from string, ce conditionalEdge, target string) error {
	if target == "" || target == START {
		return graphErrorf(ErrInvalidRoute, "INVALID_ROUTE", from,
			"router of %q returned invalid target %q", from, target)
	}
	if ce.declared() && !slices.Contains(ce.candidates, target) {
		return graphErrorf(ErrInvalidRoute, "UNDECLARED_ROUTE", from,
			"router of %q returned %q, not one of %v", from, target, ce.candidates)
	}
	if target != END && !g.isNode(target) {
		return graphErrorf(ErrInvalidRoute, "NODE_NOT_FOUND", from,
			"router of %q returned unknown node %q", from, target)
	}
	return nil
}

// record persists a completed step when a store is configured.
func (g *CompiledGraph) record(ctx context.Context, s Step) error {
	if g.cfg.store == nil {
		return nil
	}
	data, err := json.Marshal(s.State)
	if err != nil {
		return graphErrorf(ErrStore, "STORE_ERROR", s.Node, "failed to encode state: %v", err)
	}
	err = g.cfg.store.SaveStep(ctx, store.StepRecord{
		RunID:  s.RunID,
		Step:   s.Index,
		NodeID: s.Node,
		Next:   s.Next,
		State:  data,
	})
	if err != nil {
		return graphErrorf(ErrStore, "STORE_ERROR", s.Node, "failed to save step: %v", err)
	}
	return nil
}

func (g *CompiledGraph) emit(e emit.Event) {
	if g.cfg.emitter != nil {
		g.cfg.emitter.Emit(e)
	}
}

func (g *CompiledGraph) isNode(name string) bool {
	if _, ok := g.nodes[name]; ok {
		return true
	}
	_, ok := g.conditional[name]
	return ok && name != START
}

func updateKeys(u Update) []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
