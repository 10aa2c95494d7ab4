package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"emoroute/internal/labels"
	"emoroute/internal/routing"
	"emoroute/internal/runstore"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []runstore.Run{}
				}
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				mode := "run"
				if run.DryRun {
					mode = "dry-run"
				}
				rows = append(rows, []string{
					shortID(run.ID),
					humanize.Time(run.StartedAt),
					categoryLabel(run.Status),
					mode,
					strings.Join(run.Datasets, ","),
					strconv.Itoa(run.Resolved),
					strconv.Itoa(run.Copied + run.Transcoded),
					durationLabel(run),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Started", "Status", "Mode", "Datasets", "Resolved", "Written", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func durationLabel(run runstore.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.Duration().Round(100 * time.Millisecond).String()
}

type runDetail struct {
	Run      *runstore.Run             `json:"run"`
	Datasets []runstore.DatasetSummary `json:"datasets"`
	Problems []routing.Decision        `json:"problems"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut, all bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run with its dataset summaries and unresolved files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			summaries, err := store.DatasetSummaries(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			problems, err := store.Decisions(cmd.Context(), run.ID, labels.StatusUnresolved, labels.StatusConfigError)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runDetail{Run: run, Datasets: summaries, Problems: problems})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			fmt.Fprintf(out, "Status:   %s\n", categoryLabel(run.Status))
			fmt.Fprintf(out, "Started:  %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
			fmt.Fprintf(out, "Duration: %s\n", durationLabel(*run))
			fmt.Fprintf(out, "Dry run:  %s\n", yesNo(run.DryRun))
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
			}
			if !run.DryRun {
				fmt.Fprintf(out, "Written:  %d copied, %d transcoded, %d skipped, %d failed (%s)\n",
					run.Copied, run.Transcoded, run.Skipped, run.Failed, humanize.Bytes(uint64(run.BytesWritten)))
			}

			if len(summaries) > 0 {
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					status := datasetStatus(routing.Summary{ConfigErrors: s.ConfigErrors, CountMismatch: s.CountMismatch})
					if s.InvalidReason != "" {
						status = "invalid: " + s.InvalidReason
					}
					rows = append(rows, []string{
						s.Dataset,
						strconv.Itoa(s.Discovered),
						strconv.Itoa(s.Resolved),
						strconv.Itoa(s.Excluded),
						strconv.Itoa(s.Unresolved),
						strconv.Itoa(s.ConfigErrors),
						expectedLabel(s.Expected),
						status,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Dataset", "Files", "Resolved", "Excluded", "Unresolved", "Config Errors", "Expected", "Status"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
			}

			if len(problems) == 0 {
				return nil
			}
			fmt.Fprintf(out, "Problem files (%d):\n", len(problems))
			for i, d := range problems {
				if !all && i == maxListedProblems {
					fmt.Fprintf(out, "  ... %d more (use --all)\n", len(problems)-i)
					break
				}
				fmt.Fprintf(out, "  [%s] %s: %s\n", d.Status, d.Source, d.Detail)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	cmd.Flags().BoolVar(&all, "all", false, "List every problem file")
	return cmd
}
