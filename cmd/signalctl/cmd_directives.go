package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/tradesignal/internal/modules/scoring"
	"github.com/aristath/tradesignal/internal/modules/scoring/directives"
)

var directivesCmd = &cobra.Command{
	Use:   "directives",
	Short: "List the built-in directives",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := scoring.NewRegistry(directives.Builtins(), log)
		if err := registry.RegisterBuiltins(); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tMAX\tREQUIRES")
		for _, d := range registry.Directives() {
			fmt.Fprintf(tw, "%s\t%s\t%.0f\t%s\n", d.ID, d.Name, d.MaxScore, strings.Join(d.Required, ","))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(directivesCmd)
}
