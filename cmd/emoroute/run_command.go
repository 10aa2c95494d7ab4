package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"emoroute/internal/pipeline"
)

// errInvalidDatasets is returned after the summary is printed when any
// dataset was skipped as malformed, so the process exits non-zero.
var errInvalidDatasets = errors.New("one or more datasets have malformed descriptors")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var datasets []string
	var fetch, forceFetch, dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover, route and materialize the configured datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stderr := cmd.ErrOrStderr()
			p := pipeline.New(cfg, store, logger, pipeline.Options{
				Datasets:            datasets,
				Fetch:               fetch || forceFetch,
				ForceFetch:          forceFetch,
				DryRun:              dryRun,
				FetchProgress:       fetchProgress(stderr),
				MaterializeProgress: materializeProgress(stderr),
			})
			result, runErr := p.Run(cmd.Context())

			out := cmd.OutOrStdout()
			if result != nil && result.Plan != nil {
				renderPlanSummary(out, result.Plan)
				renderReport(out, result.Report)
			}
			if result != nil && result.Run != nil {
				fmt.Fprintf(out, "Run %s: %s\n", shortID(result.Run.ID), result.Run.Status)
				if result.LogPath != "" {
					fmt.Fprintf(out, "Log: %s\n", result.LogPath)
				}
			}
			if runErr != nil {
				return runErr
			}
			if len(result.Plan.Invalid) > 0 {
				return errInvalidDatasets
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&datasets, "dataset", "d", nil, "Limit the run to these dataset keys (repeatable)")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "Download datasets that are not yet present before routing")
	cmd.Flags().BoolVar(&forceFetch, "refetch", false, "Download datasets even when already present")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Route and record the run without writing the output tree")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
