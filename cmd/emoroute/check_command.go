package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"emoroute/internal/dataset"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every dataset vocabulary resolves through the final map",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := dataset.FromConfig(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			issues := dataset.Check(catalog.Descriptors, catalog.Final)
			for _, invalid := range catalog.Invalid {
				fmt.Fprintf(out, "invalid descriptor %s\n", invalid.Error())
			}
			problems := len(catalog.Invalid)
			for _, issue := range issues {
				if issue.Kind.Advisory() {
					fmt.Fprintln(out, "warning: "+issue.String())
					continue
				}
				fmt.Fprintln(out, issue.String())
				problems++
			}
			if problems > 0 {
				return fmt.Errorf("configuration check found %d problem(s)", problems)
			}
			fmt.Fprintf(out, "Checked %d datasets against %d final map entries: no issues found\n",
				len(catalog.Descriptors), catalog.Final.Len())
			return nil
		},
	}
}
