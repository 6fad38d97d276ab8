package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formengine/pkg/formconfig"
)

var errInvalidConfig = errors.New("configuration is invalid")

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <file|url>...",
		Short: "Check form configurations for structural errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := a.transport()
			out := cmd.OutOrStdout()
			failed := false
			results := make(map[string]formconfig.ValidationResult, len(args))
			for _, location := range args {
				cfg, err := readForm(cmd.Context(), t, location)
				if err != nil {
					return err
				}
				res := formconfig.Validate(cfg)
				results[location] = res
				if !res.Valid {
					failed = true
				}
				if asJSON {
					continue
				}
				if res.Valid {
					fmt.Fprintf(out, "%s: ok\n", location)
					continue
				}
				for _, msg := range res.Errors {
					fmt.Fprintf(out, "%s: %s\n", location, msg)
				}
			}
			if asJSON {
				if err := writeJSON(out, results); err != nil {
					return err
				}
			}
			if failed {
				return errInvalidConfig
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
