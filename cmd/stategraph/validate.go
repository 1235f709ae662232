package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/stategraph/graph/manifest"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate MANIFEST",
		Short: "Check a graph manifest and print it as a Mermaid diagram",
		Long: `Loads a YAML graph manifest, compiles it with placeholder node and router
implementations, and prints the topology as a Mermaid flowchart. Any
structural error, such as an unreachable node or an edge to an unknown
node, fails the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.LoadFile(args[0])
			if err != nil {
				return err
			}
			g, err := m.Check()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), g.Mermaid())
			return nil
		},
	}
}
