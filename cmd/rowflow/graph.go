package main

import (
	"fmt"

	"github.com/aretw0/rowflow/internal/presentation/graph"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <schema> [row]",
	Short: "Export the flow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the schema: declaration order, option
skips, unconditional skips, no-answer skips and dependencies. When a row is
given the nodes are coloured with its classification.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		val := newValidator()
		schema, err := val.LoadSchema(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if len(args) > 1 {
			data, err := readRow(cmd, args[1:])
			if err != nil {
				return err
			}
			row, err := val.ParseRow(data)
			if err != nil {
				return err
			}
			res, err := val.Validate(cmd.Context(), schema, row, domain.Options{})
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromResult(res)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(schema, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
