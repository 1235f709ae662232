// Package store records the steps of graph runs.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID has no recorded steps.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store is closed")

// Store is an append-only audit trail of executed steps.
//
// The engine writes one record per completed node execution and never reads
// records back: a run cannot be resumed from a store. Readers such as the CLI
// or tests use Steps and LoadLatest to inspect what happened.
//
// Implementations:
//   - MemStore: in-memory, for tests and short-lived processes
//   - SQLiteStore: single-file database for local runs
//   - MySQLStore: shared database for multiple processes
//
// Implementations must be safe for concurrent use; a single store may receive
// steps from many concurrent runs.
type Store interface {
	// SaveStep persists one completed step. A record with the same RunID and
	// Step replaces the earlier one.
	SaveStep(ctx context.Context, rec StepRecord) error

	// Steps returns every recorded step of a run ordered by step number.
	// Returns ErrNotFound if the run has no steps.
	Steps(ctx context.Context, runID string) ([]StepRecord, error)

	// LoadLatest returns the step with the highest step number of a run.
	// Returns ErrNotFound if the run has no steps.
	LoadLatest(ctx context.Context, runID string) (StepRecord, error)
}

// StepRecord is a single executed step of a run.
type StepRecord struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// Step is the sequential step number (1-indexed).
	Step int `json:"step"`

	// NodeID identifies the node that executed.
	NodeID string `json:"node_id"`

	// Next is the node selected to run afterwards, possibly the END sentinel.
	Next string `json:"next"`

	// State is the JSON-encoded snapshot after the step.
	State []byte `json:"state"`

	// CreatedAt is set by the store when the record is saved.
	CreatedAt time.Time `json:"created_at"`
}
