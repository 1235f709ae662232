package store

import (
	"context"
	"testing"
)

func TestMemStore(t *testing.T) {
	exerciseStore(t, func(t *testing.T) Store { return NewMemStore() })
}

func TestMemStore_CopiesState(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	state := []byte(`{"a":1}`)
	if err := st.SaveStep(ctx, StepRecord{RunID: "r", Step: 1, NodeID: "n", State: state}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}
	state[2] = 'b'

	rec, err := st.LoadLatest(ctx, "r")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if string(rec.State) != `{"a":1}` {
		t.Errorf("stored state was mutated through caller slice: %s", rec.State)
	}
}

func TestMemStore_Runs(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()
	_ = st.SaveStep(ctx, StepRecord{RunID: "b", Step: 1})
	_ = st.SaveStep(ctx, StepRecord{RunID: "a", Step: 1})

	runs := st.Runs()
	if len(runs) != 2 || runs[0] != "a" || runs[1] != "b" {
		t.Errorf("expected [a b], got %v", runs)
	}
}
