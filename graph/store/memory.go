package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of Store.
//
// MemStore is thread-safe and supports concurrent access. Data is lost when
// the process terminates and memory grows with run history; use SQLiteStore
// or MySQLStore to keep records.
type MemStore struct {
	mu    sync.RWMutex
	steps map[string][]StepRecord // runID -> steps ordered by step number
	now   func() time.Time
}

// NewMemStore creates a new in-memory store.
//
// Example:
//
//	st := store.NewMemStore()
//	g, err := b.Compile(graph.WithStore(st))
func NewMemStore() *MemStore {
	return &MemStore{
		steps: make(map[string][]StepRecord),
		now:   time.Now,
	}
}

// SaveStep records a step, replacing any earlier record with the same step
// number. Records are kept ordered by step number even when saved out of order.
func (m *MemStore) SaveStep(_ context.Context, rec StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.State = slices.Clone(rec.State)
	rec.CreatedAt = m.now()

	records := m.steps[rec.RunID]
	i, found := slices.BinarySearchFunc(records, rec.Step, func(r StepRecord, step int) int {
		return r.Step - step
	})
	if found {
		records[i] = rec
		return nil
	}
	m.steps[rec.RunID] = slices.Insert(records, i, rec)
	return nil
}

// Steps returns a copy of the run's recorded steps.
func (m *MemStore) Steps(_ context.Context, runID string) ([]StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[runID]
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	out := make([]StepRecord, len(records))
	for i, r := range records {
		r.State = slices.Clone(r.State)
		out[i] = r
	}
	return out, nil
}

// LoadLatest returns the step with the highest step number.
func (m *MemStore) LoadLatest(_ context.Context, runID string) (StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[runID]
	if len(records) == 0 {
		return StepRecord{}, ErrNotFound
	}
	latest := records[len(records)-1]
	latest.State = slices.Clone(latest.State)
	return latest, nil
}

// Runs returns the IDs of all runs with recorded steps, sorted.
func (m *MemStore) Runs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.steps))
	for id := range m.steps {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
