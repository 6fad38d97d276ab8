package main

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/remote"
)

func newSourcesCmd(a *app) *cobra.Command {
	var metrics bool
	cmd := &cobra.Command{
		Use:   "sources [name]...",
		Short: "Load the configured data sources and print their options",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg := prometheus.NewRegistry()
			m, err := remote.NewMetrics(reg)
			if err != nil {
				return err
			}
			loader := a.loader(a.transport(), remote.WithCache(remote.NewCache()), remote.WithMetrics(m))

			var data map[string][]remote.Option
			if len(args) == 0 {
				data = loader.LoadAll(ctx)
			} else {
				data = make(map[string][]remote.Option, len(args))
				for _, name := range args {
					options, err := loader.Load(ctx, name, nil)
					if err != nil {
						return err
					}
					data[name] = options
				}
			}
			out := cmd.OutOrStdout()
			if err := writeJSON(out, data); err != nil {
				return err
			}
			if !metrics {
				return nil
			}

			families, err := reg.Gather()
			if err != nil {
				return err
			}
			sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
			for _, mf := range families {
				for _, metric := range mf.GetMetric() {
					labels := ""
					for _, lp := range metric.GetLabel() {
						labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
					}
					fmt.Fprintf(out, "%s%s %g\n", mf.GetName(), labels, metric.GetCounter().GetValue())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print loader metrics after loading")
	return cmd
}
