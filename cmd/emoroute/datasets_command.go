package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"emoroute/internal/acquire"
	"emoroute/internal/dataset"
	"emoroute/internal/staging"
)

func newDatasetsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var usage bool

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List configured datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := dataset.FromConfig(cfg)
			if err != nil {
				return err
			}

			views := datasetViews(catalog, usage)
			if jsonOut {
				return writeJSON(cmd, views)
			}

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				row := []string{
					view.Key,
					view.Name,
					view.Convention,
					view.Source,
					strconv.Itoa(view.Labels),
					expectedLabel(view.Expected),
					yesNo(view.Fetched),
				}
				if usage {
					row = append(row, strconv.Itoa(view.Files), humanize.IBytes(uint64(view.Bytes)))
				}
				rows = append(rows, append(row, view.Root))
			}
			headers := []string{"Key", "Name", "Naming", "Source", "Labels", "Expected", "Fetched"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
			if usage {
				headers = append(headers, "Files", "Size")
				aligns = append(aligns, alignRight, alignRight)
			}
			headers = append(headers, "Root")
			aligns = append(aligns, alignLeft)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			for _, invalid := range catalog.Invalid {
				fmt.Fprintf(out, "Invalid: %s\n", invalid.Error())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&usage, "usage", false, "Walk each dataset root and report file count and size")
	return cmd
}

type datasetView struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Convention string `json:"convention"`
	Source     string `json:"source"`
	Labels     int    `json:"labels"`
	Expected   int    `json:"expected"`
	Fetched    bool   `json:"fetched"`
	Root       string `json:"root"`
	Files      int    `json:"files,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
}

func datasetViews(catalog *dataset.Catalog, usage bool) []datasetView {
	views := make([]datasetView, 0, len(catalog.Descriptors))
	for _, d := range catalog.Descriptors {
		view := datasetView{
			Key:        d.Key,
			Name:       d.Name,
			Convention: d.Convention.Kind(),
			Source:     sourceLabel(d),
			Labels:     len(d.VocabularyKeys()),
			Expected:   d.ExpectedCount,
			Fetched:    acquire.IsComplete(d.LocalRoot),
			Root:       d.LocalRoot,
		}
		if usage {
			view.Bytes, view.Files, _ = staging.Usage(d.LocalRoot)
		}
		views = append(views, view)
	}
	return views
}

func sourceLabel(d *dataset.Descriptor) string {
	switch {
	case d.HostedRepo != "":
		return "hf:" + d.HostedRepo
	case len(d.URLs) == 1:
		return "1 archive"
	case len(d.URLs) > 1:
		return fmt.Sprintf("%d archives", len(d.URLs))
	default:
		return "local"
	}
}
