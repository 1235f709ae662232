package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/graph/emit"
	"github.com/dshills/stategraph/graph/store"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	logFormat string
	logLevel  string
	dbPath    string
	maxSteps  int
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "stategraph",
		Short: "Run and inspect state graphs",
		Long: `stategraph runs the bundled example graphs and validates graph manifests.

Examples:
  stategraph run hello --name Anchit
  stategraph run joke-or-fact "i want a joke"
  stategraph validate graph.yaml
  stategraph history RUN_ID --db runs.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logFormat, "log-format", "text", "event log format: text or json")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "minimum event level: debug, info, warn, or error")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite file recording every step (disabled when empty)")
	flags.IntVar(&opts.maxSteps, "max-steps", graph.DefaultMaxSteps, "maximum node executions per run (0 disables)")

	cmd.AddCommand(newRunCmd(opts), newValidateCmd(), newHistoryCmd(opts))
	return cmd
}

// logger builds the slog logger writing events to w.
func (o *globalOptions) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", o.logLevel)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(o.logFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("invalid --log-format %q: want text or json", o.logFormat)
}

// graphOptions returns the compile options selected by the global flags and
// a cleanup func releasing the store.
func (o *globalOptions) graphOptions(logs io.Writer) ([]graph.Option, func(), error) {
	logger, err := o.logger(logs)
	if err != nil {
		return nil, nil, err
	}
	opts := []graph.Option{
		graph.WithEmitter(emit.NewSlogEmitter(logger)),
		graph.WithMaxSteps(o.maxSteps),
	}
	if o.dbPath == "" {
		return opts, func() {}, nil
	}

	st, err := store.NewSQLiteStore(o.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open step store: %w", err)
	}
	return append(opts, graph.WithStore(st)), func() { _ = st.Close() }, nil
}
