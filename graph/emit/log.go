package emit

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
)

// LogEmitter implements Emitter by writing each event as a structured log
// record through log/slog.
//
// Events carrying an "error" meta entry are logged at Error level; all others
// at Info (run lifecycle) or Debug (node and route events).
//
// Example text output:
//
//	time=... level=DEBUG msg=node_start run_id=3f2a step=1 node_id=sayHello
//
// Example JSON output:
//
//	{"time":"...","level":"DEBUG","msg":"node_end","run_id":"3f2a","step":1,"node_id":"sayHello","duration_ms":0}
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a LogEmitter writing to writer, in JSON lines when
// jsonMode is set and slog's key=value text otherwise. A nil writer writes to
// os.Stdout. All levels are written; use NewSlogEmitter to control the level.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var h slog.Handler
	if jsonMode {
		h = slog.NewJSONHandler(writer, opts)
	} else {
		h = slog.NewTextHandler(writer, opts)
	}
	return &LogEmitter{logger: slog.New(h)}
}

// NewSlogEmitter creates a LogEmitter that logs through an existing logger.
// A nil logger uses slog.Default().
func NewSlogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit logs the event. Meta entries become attributes in sorted key order.
func (l *LogEmitter) Emit(event Event) {
	level := slog.LevelDebug
	switch event.Msg {
	case "graph_start", "graph_end":
		level = slog.LevelInfo
	}
	if _, failed := event.Err(); failed {
		level = slog.LevelError
	}

	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 3+len(event.Meta))
	attrs = append(attrs, slog.String("run_id", event.RunID), slog.Int("step", event.Step))
	if event.NodeID != "" {
		attrs = append(attrs, slog.String("node_id", event.NodeID))
	}
	for _, key := range slices.Sorted(maps.Keys(event.Meta)) {
		attrs = append(attrs, slog.Any(key, event.Meta[key]))
	}
	l.logger.LogAttrs(ctx, level, event.Msg, attrs...)
}
