package emit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLogEmitter_Text(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)

	e.Emit(Event{RunID: "run-001", Step: 1, NodeID: "nodeA", Msg: "node_start"})

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "msg=node_start", "run_id=run-001", "step=1", "node_id=nodeA"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestLogEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)

	e.Emit(Event{RunID: "run-001", Step: 2, NodeID: "nodeB", Msg: "node_end", Meta: map[string]interface{}{
		"error":       "boom",
		"duration_ms": 7,
	}})

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not a JSON line: %v (%q)", err, buf.String())
	}
	if rec["level"] != "ERROR" {
		t.Errorf("expected ERROR level for failed event, got %v", rec["level"])
	}
	if rec["msg"] != "node_end" || rec["run_id"] != "run-001" || rec["node_id"] != "nodeB" {
		t.Errorf("unexpected record: %v", rec)
	}
	if rec["error"] != "boom" {
		t.Errorf("expected error attribute, got %v", rec["error"])
	}
	if rec["duration_ms"] != float64(7) {
		t.Errorf("expected duration_ms 7, got %v", rec["duration_ms"])
	}
}

func TestLogEmitter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	e := NewSlogEmitter(logger)

	e.Emit(Event{RunID: "r", Msg: "graph_start"})
	e.Emit(Event{RunID: "r", Step: 1, NodeID: "a", Msg: "node_start"})
	e.Emit(Event{RunID: "r", Step: 1, Msg: "graph_end"})

	out := buf.String()
	if strings.Contains(out, "node_start") {
		t.Errorf("debug event written at info level: %q", out)
	}
	if strings.Count(out, "level=INFO") != 2 {
		t.Errorf("expected 2 info records, got %q", out)
	}
}

func TestNullEmitter(t *testing.T) {
	var e Emitter = NewNullEmitter()
	e.Emit(Event{RunID: "r", Msg: "node_start"})
}

func TestMultiEmitter(t *testing.T) {
	a := NewBufferedEmitter()
	b := NewBufferedEmitter()
	m := NewMultiEmitter(a, nil, b)

	m.Emit(Event{RunID: "r", Msg: "graph_start"})
	m.Emit(Event{RunID: "r", Msg: "graph_end"})

	want := []string{"graph_start", "graph_end"}
	for name, buf := range map[string]*BufferedEmitter{"a": a, "b": b} {
		if diff := cmp.Diff(want, buf.Messages("r")); diff != "" {
			t.Errorf("emitter %s messages mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestBufferedEmitter(t *testing.T) {
	buf := NewBufferedEmitter()
	buf.Emit(Event{RunID: "r1", Step: 0, Msg: "graph_start"})
	buf.Emit(Event{RunID: "r1", Step: 1, NodeID: "a", Msg: "node_start"})
	buf.Emit(Event{RunID: "r1", Step: 1, NodeID: "a", Msg: "node_end"})
	buf.Emit(Event{RunID: "r2", Step: 0, Msg: "graph_start"})
	buf.Emit(Event{RunID: "r1", Step: 2, NodeID: "b", Msg: "node_start"})

	t.Run("history", func(t *testing.T) {
		if got := len(buf.History("r1")); got != 4 {
			t.Errorf("expected 4 events for r1, got %d", got)
		}
		if got := buf.History("unknown"); got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil history, got %#v", got)
		}
	})

	t.Run("filter", func(t *testing.T) {
		got := buf.HistoryWithFilter("r1", HistoryFilter{Msg: "node_start"})
		if len(got) != 2 {
			t.Fatalf("expected 2 node_start events, got %d", len(got))
		}
		if got[0].NodeID != "a" || got[1].NodeID != "b" {
			t.Errorf("unexpected order: %v", got)
		}

		minStep, maxStep := 1, 1
		got = buf.HistoryWithFilter("r1", HistoryFilter{MinStep: &minStep, MaxStep: &maxStep})
		if len(got) != 2 {
			t.Errorf("expected 2 events in step 1, got %d", len(got))
		}

		got = buf.HistoryWithFilter("r1", HistoryFilter{NodeID: "b"})
		if len(got) != 1 {
			t.Errorf("expected 1 event for node b, got %d", len(got))
		}
	})

	t.Run("runs and clear", func(t *testing.T) {
		if diff := cmp.Diff([]string{"r1", "r2"}, buf.Runs()); diff != "" {
			t.Errorf("runs mismatch (-want +got):\n%s", diff)
		}
		buf.Clear("r1")
		if diff := cmp.Diff([]string{"r2"}, buf.Runs()); diff != "" {
			t.Errorf("runs after clear mismatch (-want +got):\n%s", diff)
		}
		buf.Clear("")
		if len(buf.Runs()) != 0 || len(buf.History("r2")) != 0 {
			t.Error("expected no events after clearing all runs")
		}
	})
}

func TestBufferedEmitter_Concurrent(t *testing.T) {
	buf := NewBufferedEmitter()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf.Emit(Event{RunID: "r", Step: i, Msg: "node_start"})
		}(i)
	}
	wg.Wait()

	if got := len(buf.History("r")); got != 20 {
		t.Errorf("expected 20 events, got %d", got)
	}
}

func TestEvent_Err(t *testing.T) {
	if _, ok := (Event{}).Err(); ok {
		t.Error("expected no error for event without meta")
	}
	msg, ok := Event{Meta: map[string]interface{}{"error": "boom"}}.Err()
	if !ok || msg != "boom" {
		t.Errorf("expected boom, got %q (%v)", msg, ok)
	}
}
