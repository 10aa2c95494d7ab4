package main

import (
	"github.com/spf13/cobra"

	"emoroute/internal/pipeline"
	"emoroute/internal/routing"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var datasets []string
	var format, output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Route the datasets and print the plan without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := validateFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			result, err := pipeline.New(cfg, nil, logger, pipeline.Options{Datasets: datasets}).Plan(cmd.Context())
			if err != nil {
				return err
			}
			if outFormat == formatTable {
				renderPlanSummary(cmd.OutOrStdout(), result.Plan)
			} else if err := writeStructured(cmd, outFormat, output, planDocument(result.Plan)); err != nil {
				return err
			}
			if len(result.Plan.Invalid) > 0 {
				return errInvalidDatasets
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&datasets, "dataset", "d", nil, "Limit the plan to these dataset keys (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write json/yaml output to this file instead of stdout")
	return cmd
}

// planExport is the serialized form of a routing plan.
type planExport struct {
	Totals   routing.Summary          `json:"totals" yaml:"totals"`
	Datasets []routing.DatasetPlan    `json:"datasets" yaml:"datasets"`
	Invalid  []routing.InvalidDataset `json:"invalid,omitempty" yaml:"invalid,omitempty"`
}

func planDocument(plan *routing.Plan) planExport {
	return planExport{Totals: plan.Totals(), Datasets: plan.Datasets, Invalid: plan.Invalid}
}
