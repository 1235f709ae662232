package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// exerciseStore runs behavior every Store implementation must share.
func exerciseStore(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown run returns ErrNotFound", func(t *testing.T) {
		st := newStore(t)
		if _, err := st.Steps(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound from Steps, got %v", err)
		}
		if _, err := st.LoadLatest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound from LoadLatest, got %v", err)
		}
	})

	t.Run("steps ordered by step number", func(t *testing.T) {
		st := newStore(t)
		for _, step := range []int{2, 1, 3} {
			rec := StepRecord{
				RunID:  "run-1",
				Step:   step,
				NodeID: fmt.Sprintf("node-%d", step),
				Next:   "__end__",
				State:  []byte(fmt.Sprintf(`{"n":%d}`, step)),
			}
			if err := st.SaveStep(ctx, rec); err != nil {
				t.Fatalf("SaveStep(%d) failed: %v", step, err)
			}
		}

		steps, err := st.Steps(ctx, "run-1")
		if err != nil {
			t.Fatalf("Steps failed: %v", err)
		}
		if len(steps) != 3 {
			t.Fatalf("expected 3 steps, got %d", len(steps))
		}
		for i, rec := range steps {
			if rec.Step != i+1 {
				t.Errorf("steps[%d].Step = %d, expected %d", i, rec.Step, i+1)
			}
			if rec.CreatedAt.IsZero() {
				t.Errorf("steps[%d].CreatedAt not set", i)
			}
		}

		latest, err := st.LoadLatest(ctx, "run-1")
		if err != nil {
			t.Fatalf("LoadLatest failed: %v", err)
		}
		if latest.Step != 3 || latest.NodeID != "node-3" || string(latest.State) != `{"n":3}` {
			t.Errorf("unexpected latest record: %+v", latest)
		}
	})

	t.Run("same step replaces earlier record", func(t *testing.T) {
		st := newStore(t)
		_ = st.SaveStep(ctx, StepRecord{RunID: "r", Step: 1, NodeID: "a", Next: "b", State: []byte(`{}`)})
		_ = st.SaveStep(ctx, StepRecord{RunID: "r", Step: 1, NodeID: "c", Next: "d", State: []byte(`{"x":1}`)})

		steps, err := st.Steps(ctx, "r")
		if err != nil {
			t.Fatalf("Steps failed: %v", err)
		}
		if len(steps) != 1 {
			t.Fatalf("expected 1 step, got %d", len(steps))
		}
		if steps[0].NodeID != "c" || steps[0].Next != "d" {
			t.Errorf("expected replaced record, got %+v", steps[0])
		}
	})

	t.Run("runs are isolated", func(t *testing.T) {
		st := newStore(t)
		_ = st.SaveStep(ctx, StepRecord{RunID: "a", Step: 1, NodeID: "x", Next: "y", State: []byte(`{}`)})
		_ = st.SaveStep(ctx, StepRecord{RunID: "b", Step: 1, NodeID: "z", Next: "y", State: []byte(`{}`)})

		steps, err := st.Steps(ctx, "a")
		if err != nil {
			t.Fatalf("Steps failed: %v", err)
		}
		if len(steps) != 1 || steps[0].NodeID != "x" {
			t.Errorf("run a leaked records: %+v", steps)
		}
	})

	t.Run("concurrent writers", func(t *testing.T) {
		st := newStore(t)
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(run int) {
				defer wg.Done()
				for step := 1; step <= 5; step++ {
					rec := StepRecord{RunID: fmt.Sprintf("run-%d", run), Step: step, NodeID: "n", Next: "n", State: []byte(`{}`)}
					if err := st.SaveStep(ctx, rec); err != nil {
						t.Errorf("SaveStep failed: %v", err)
					}
				}
			}(i)
		}
		wg.Wait()

		for i := range 10 {
			steps, err := st.Steps(ctx, fmt.Sprintf("run-%d", i))
			if err != nil {
				t.Fatalf("Steps failed: %v", err)
			}
			if len(steps) != 5 {
				t.Errorf("run-%d: expected 5 steps, got %d", i, len(steps))
			}
		}
	})
}
