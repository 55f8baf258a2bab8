package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/rowflow"
	"github.com/aretw0/rowflow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of rowflow",
	Run: func(cmd *cobra.Command, args []string) {
		version := strings.TrimSpace(rowflow.Version)
		if isTerminal(cmd.OutOrStdout()) {
			tui.PrintBanner(cmd.OutOrStdout(), version)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rowflow version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
