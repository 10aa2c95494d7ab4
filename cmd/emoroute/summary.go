package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"emoroute/internal/emotion"
	"emoroute/internal/materialize"
	"emoroute/internal/routing"
)

func datasetStatus(s routing.Summary) string {
	switch {
	case s.ConfigErrors > 0:
		return "config errors"
	case s.CountMismatch:
		return "count mismatch"
	default:
		return "ok"
	}
}

func expectedLabel(expected int) string {
	if expected <= 0 {
		return "-"
	}
	return strconv.Itoa(expected)
}

// renderPlanSummary prints the per-dataset table, the category totals, and
// any datasets skipped as malformed.
func renderPlanSummary(w io.Writer, plan *routing.Plan) {
	headers := []string{"Dataset", "Files", "Resolved", "Excluded", "Unresolved", "Config Errors", "Expected", "Status"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(plan.Datasets)+len(plan.Invalid)+1)
	for _, ds := range plan.Datasets {
		s := ds.Summary
		rows = append(rows, []string{
			ds.Dataset,
			strconv.Itoa(s.Discovered),
			strconv.Itoa(s.Resolved),
			strconv.Itoa(s.Excluded),
			strconv.Itoa(s.Unresolved),
			strconv.Itoa(s.ConfigErrors),
			expectedLabel(s.Expected),
			datasetStatus(s),
		})
	}
	for _, invalid := range plan.Invalid {
		rows = append(rows, []string{invalid.Dataset, "-", "-", "-", "-", "-", "-", "invalid"})
	}
	totals := plan.Totals()
	rows = append(rows, []string{
		"total",
		strconv.Itoa(totals.Discovered),
		strconv.Itoa(totals.Resolved),
		strconv.Itoa(totals.Excluded),
		strconv.Itoa(totals.Unresolved),
		strconv.Itoa(totals.ConfigErrors),
		expectedLabel(totals.Expected),
		"",
	})
	fmt.Fprintln(w, renderTable(headers, rows, aligns))

	if len(totals.Categories) > 0 {
		fmt.Fprintln(w, renderCategoryTable(totals.Categories))
	}
	for _, invalid := range plan.Invalid {
		fmt.Fprintf(w, "Skipped %s: %s\n", invalid.Dataset, invalid.Reason)
	}
}

func renderCategoryTable(counts map[emotion.Category]int) string {
	categories := make([]string, 0, len(counts))
	for category := range counts {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)
	rows := make([][]string, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, []string{categoryLabel(category), strconv.Itoa(counts[emotion.Category(category)])})
	}
	return renderTable([]string{"Category", "Files"}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderReport(w io.Writer, report *materialize.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Wrote %d files (%s): %d copied, %d transcoded; %d already present, %d failed\n",
		report.Written(), report.HumanBytes(), report.Copied, report.Transcoded, report.Skipped, report.Failed)
	shown := 0
	for _, res := range report.Results {
		if res.Outcome != materialize.OutcomeFailed {
			continue
		}
		if shown == maxListedProblems {
			fmt.Fprintf(w, "  ... %d more failures (see the run log)\n", report.Failed-shown)
			break
		}
		fmt.Fprintf(w, "  failed %s: %s\n", res.Source, res.Error)
		shown++
	}
}

const maxListedProblems = 20
