package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"emoroute/internal/preflight"
	"emoroute/internal/runlock"
	"emoroute/internal/services"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var network bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency, directory and run state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			failed := false

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configPath := ctx.configPath
			if configPath == "" {
				configPath = "(defaults)"
			}
			lines = append(lines, renderStatusLine("Config file", statusInfo, configPath, colorize))
			lines = append(lines, renderStatusLine("Datasets", statusInfo, strings.Join(cfg.DatasetKeys(), ", "), colorize))
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				if !status.Available && !status.Optional {
					failed = true
				}
				lines = append(lines, dependencyLine(status, colorize))
			}
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Paths", colorize)...)
			for _, result := range preflight.RunAll(cmd.Context(), cfg, network) {
				kind := statusError
				if strings.HasPrefix(result.Name, "Source ") || strings.HasPrefix(result.Name, "Output volume") {
					kind = statusWarn
				} else if !result.Passed {
					failed = true
				}
				lines = append(lines, preflightLine(result, kind, colorize))
			}
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Runs", colorize)...)
			if held, err := runlock.Held(cfg.Paths.StateDir); err != nil {
				lines = append(lines, renderStatusLine("Run lock", statusWarn, err.Error(), colorize))
			} else if held {
				lines = append(lines, renderStatusLine("Run lock", statusWarn, "a run is in progress", colorize))
			} else {
				lines = append(lines, renderStatusLine("Run lock", statusOK, "idle", colorize))
			}
			lines = append(lines, lastRunLine(ctx, cmd, colorize))

			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if failed {
				return fmt.Errorf("status checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&network, "network", false, "Also probe dataset archive URLs")
	return cmd
}

func lastRunLine(ctx *commandContext, cmd *cobra.Command, colorize bool) string {
	store, err := ctx.openStore()
	if err != nil {
		return renderStatusLine("Last run", statusWarn, err.Error(), colorize)
	}
	defer store.Close()
	runs, err := store.ListRuns(cmd.Context(), 1)
	if err != nil {
		return renderStatusLine("Last run", statusWarn, err.Error(), colorize)
	}
	if len(runs) == 0 {
		return renderStatusLine("Last run", statusInfo, "none recorded", colorize)
	}
	run := runs[0]
	kind := statusOK
	if run.Status != services.StatusCompleted {
		kind = statusWarn
	}
	msg := fmt.Sprintf("%s %s %s, %d resolved", shortID(run.ID), categoryLabel(run.Status), humanize.Time(run.StartedAt), run.Resolved)
	return renderStatusLine("Last run", kind, msg, colorize)
}
