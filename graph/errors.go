// Package graph provides the core graph compilation and execution engine for StateGraph.
package graph

import (
	"errors"
	"fmt"
)

// Error kinds. Errors returned by the builder, the compiler, and the executor
// match one of these with errors.Is, except context cancellation, which is
// returned as ctx.Err().
var (
	// ErrSchema indicates a state field was referenced that has no channel
	// declaration, or a value was rejected by its channel.
	ErrSchema = errors.New("schema error")

	// ErrInvalidNode indicates a node was registered with an empty name or a
	// nil implementation.
	ErrInvalidNode = errors.New("invalid node")

	// ErrDuplicateNode indicates a node name was registered twice or collides
	// with a sentinel.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrGraphFrozen indicates a builder was used after Compile.
	ErrGraphFrozen = errors.New("graph is frozen")

	// ErrInvalidEdge indicates an edge references an unknown node, violates a
	// sentinel rule, or conflicts with another edge from the same node.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrUnreachableGraph indicates START has no outgoing edge or some node
	// cannot be reached from START.
	ErrUnreachableGraph = errors.New("unreachable graph")

	// ErrInvalidRoute indicates a router returned a target that is not a
	// declared candidate or not a known node.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrDeadEnd indicates a node other than END has no outgoing edge.
	ErrDeadEnd = errors.New("dead end")

	// ErrNodeExecution indicates a node or router function failed.
	ErrNodeExecution = errors.New("node execution failed")

	// ErrStore indicates the configured run-history store failed to record a
	// step. The run is aborted.
	ErrStore = errors.New("store error")

	// ErrStepLimit indicates a run exceeded the configured maximum number of
	// steps. This is the only cycle protection the engine provides.
	ErrStepLimit = errors.New("step limit exceeded")
)

// GraphError describes a structural defect found while building or compiling a
// graph, or a routing failure found while running one.
type GraphError struct {
	// Kind is one of the Err* sentinels above.
	Kind error

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// Node names the offending node, if any.
	Node string

	// Msg is the human-readable detail.
	Msg string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func graphErrorf(kind error, code, node, format string, args ...any) error {
	return &GraphError{Kind: kind, Code: code, Node: node, Msg: fmt.Sprintf(format, args...)}
}

// SchemaError reports a state field that does not match the channel schema.
type SchemaError struct {
	// Field is the offending state field.
	Field string

	// Msg is the human-readable detail.
	Msg string

	// Cause is the underlying error reported by a channel, if any.
	Cause error
}

func (e *SchemaError) Error() string {
	msg := "schema error: field " + e.Field + ": " + e.Msg
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// Unwrap returns the channel-level cause.
func (e *SchemaError) Unwrap() error { return e.Cause }

// NodeError wraps a failure raised by a node or router function.
// It provides structured error information for better observability and debugging.
type NodeError struct {
	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the error returned by the node function.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return "node " + e.NodeID + ": " + e.Cause.Error()
}

// Is reports whether target is ErrNodeExecution.
func (e *NodeError) Is(target error) bool { return target == ErrNodeExecution }

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
