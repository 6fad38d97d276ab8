package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/internal/prompt"
	"github.com/goliatone/go-formengine/pkg/orchestrator"
	"github.com/goliatone/go-formengine/pkg/plugin"
	"github.com/goliatone/go-formengine/pkg/plugins/remotedata"
	"github.com/goliatone/go-formengine/pkg/plugins/sanitize"
	"github.com/goliatone/go-formengine/pkg/plugins/storage"
)

func newFillCmd(a *app) *cobra.Command {
	var (
		rawValues string
		draft     bool
		clean     bool
		submit    bool
	)
	cmd := &cobra.Command{
		Use:   "fill <file|url>",
		Short: "Fill a form interactively and print or submit the values",
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

			plugins := []plugin.Plugin{remotedata.New(a.loader(t), remotedata.WithLogger(a.log))}
			if clean {
				plugins = append(plugins, sanitize.New())
			}
			if draft {
				store, closeStore, err := a.store()
				if err != nil {
					return err
				}
				defer func() { _ = closeStore() }()
				plugins = append(plugins, storage.New(store, "draft:"+cfg.FormID,
					storage.WithExpiry(a.cfg.Storage.Expiry),
					storage.WithLogger(a.log),
				))
			}

			var response any
			form, err := orchestrator.New(cfg,
				orchestrator.WithLogger(a.log),
				orchestrator.WithTransport(t),
				orchestrator.WithInitialValues(values),
				orchestrator.WithPlugins(plugins...),
				orchestrator.WithOnSubmit(func(_ map[string]any, resp any) { response = resp }),
			)
			if err != nil {
				return err
			}
			if err := form.Mount(ctx); err != nil {
				return err
			}
			defer func() { _ = form.Dispose(ctx) }()

			session := prompt.New(prompt.WithLogger(a.log), prompt.WithConfirmSubmit(true))
			if !submit {
				filled, err := session.Fill(ctx, form)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), filled)
			}
			filled, err := session.Run(ctx, form)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"values": filled, "response": response})
		},
	}
	cmd.Flags().StringVar(&rawValues, "values", "", "initial values as a JSON object")
	cmd.Flags().BoolVar(&draft, "draft", false, "restore and save a draft in the configured store")
	cmd.Flags().BoolVar(&clean, "sanitize", true, "strip markup from answers before submitting")
	cmd.Flags().BoolVar(&submit, "submit", false, "submit the values to the form's endpoint")
	return cmd
}
