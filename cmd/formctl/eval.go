package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/orchestrator"
	"github.com/goliatone/go-formengine/pkg/visibility"
	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

type fieldReport struct {
	Visible   bool   `json:"visible"`
	Disabled  bool   `json:"disabled"`
	Component string `json:"component"`
	Options   int    `json:"options"`
}

type buttonReport struct {
	Text     string `json:"text"`
	Visible  bool   `json:"visible"`
	Disabled bool   `json:"disabled"`
}

func newEvalCmd(a *app) *cobra.Command {
	var rawValues, expression string
	cmd := &cobra.Command{
		Use:   "eval <file|url>",
		Short: "Resolve field and button state for a set of values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(rawValues)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			t := a.transport()
			cfg, err := loadForm(ctx, t, args[0])
			if err != nil {
				return err
			}
			form, err := orchestrator.New(cfg,
				orchestrator.WithLogger(a.log),
				orchestrator.WithTransport(t),
				orchestrator.WithRemote(a.loader(t)),
				orchestrator.WithInitialValues(values),
			)
			if err != nil {
				return err
			}
			if err := form.Mount(ctx); err != nil {
				return err
			}
			defer func() { _ = form.Dispose(ctx) }()

			report := struct {
				Fields     map[string]fieldReport `json:"fields"`
				Buttons    []buttonReport         `json:"buttons,omitempty"`
				Errors     map[string][]string    `json:"errors,omitempty"`
				Expression any                    `json:"expression,omitempty"`
			}{Fields: map[string]fieldReport{}}

			for path, st := range form.FieldStates() {
				report.Fields[path] = fieldReport{
					Visible:   st.Visible,
					Disabled:  st.Disabled,
					Component: st.Component,
					Options:   len(st.Options),
				}
			}
			for _, b := range form.ButtonStates() {
				report.Buttons = append(report.Buttons, buttonReport{Text: b.Text, Visible: b.Visible, Disabled: b.Disabled})
			}
			report.Errors = form.Validate(ctx)
			if expression != "" {
				scope := vexpr.Scope(visibility.Context{Values: form.Values()})
				report.Expression = vexpr.Evaluate(expression, scope)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&rawValues, "values", "", "form values as a JSON object")
	cmd.Flags().StringVar(&expression, "expr", "", "also evaluate this expression against the values")
	return cmd
}
