package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/deps"
)

func newGraphCmd(a *app) *cobra.Command {
	var changed []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "graph <file|url>",
		Short: "Print the field dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForm(cmd.Context(), a.transport(), args[0])
			if err != nil {
				return err
			}
			g := deps.Build(cfg.Fields)
			report := struct {
				Edges        map[string][]string `json:"edges"`
				Cycles       [][]string          `json:"cycles,omitempty"`
				Recalculated []string            `json:"recalculated,omitempty"`
			}{Edges: g.Edges(), Cycles: g.Cycles()}
			if len(changed) > 0 {
				report.Recalculated = g.FieldsToRecalculate(changed)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, report)
			}
			for _, source := range g.Sources() {
				fmt.Fprintf(out, "%s -> %s\n", source, strings.Join(g.Direct(source), ", "))
			}
			for _, cycle := range report.Cycles {
				fmt.Fprintf(out, "cycle: %s\n", strings.Join(cycle, " -> "))
			}
			if len(changed) > 0 {
				fmt.Fprintf(out, "recalculate: %s\n", strings.Join(report.Recalculated, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&changed, "changed", nil, "fields to compute the recalculation set for")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the graph as JSON")
	return cmd
}
