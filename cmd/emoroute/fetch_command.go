package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"emoroute/internal/pipeline"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var datasets []string
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download datasets into raw_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			p := pipeline.New(cfg, nil, logger, pipeline.Options{
				Datasets:      datasets,
				ForceFetch:    force,
				FetchProgress: fetchProgress(cmd.ErrOrStderr()),
			})
			results, fetchErr := p.Fetch(cmd.Context())

			rows := make([][]string, 0, len(results))
			for _, res := range results {
				size := "-"
				if res.Bytes > 0 {
					size = humanize.Bytes(uint64(res.Bytes))
				}
				rows = append(rows, []string{res.Dataset, categoryLabel(string(res.Outcome)), strconv.Itoa(res.Files), size})
			}
			if len(rows) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Dataset", "Outcome", "Files", "Downloaded"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
			}
			return fetchErr
		},
	}

	cmd.Flags().StringSliceVarP(&datasets, "dataset", "d", nil, "Limit to these dataset keys (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Download again even when a dataset is marked complete")
	return cmd
}
