package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/graph/store"
)

func newHistoryCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history RUN_ID",
		Short: "Print the steps recorded for a run",
		Long: `Prints every step a run recorded with --db: the node that ran, the node
selected next, and the state after the step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if global.dbPath == "" {
				return errors.New("history requires --db")
			}
			st, err := store.NewSQLiteStore(global.dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			steps, err := st.Steps(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no steps recorded for run %s", args[0])
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tNODE\tNEXT\tSTATE")
			for _, s := range steps {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Step, s.NodeID, s.Next, s.State)
			}
			return w.Flush()
		},
	}
}
