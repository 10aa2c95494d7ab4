package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

type alignments []columnAlignment

func (a alignments) at(i int) text.Align {
	if i < len(a) && a[i] == alignRight {
		return text.AlignRight
	}
	return text.AlignLeft
}

// renderTable draws a rounded go-pretty table. Short rows are padded with
// empty cells.
func renderTable(headers []string, rows [][]string, aligns alignments) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: aligns.at(i), AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range min(width, len(cells)) {
		row[i] = cells[i]
	}
	return row
}

var titleCaser = cases.Title(language.English)

// categoryLabel renders a category or status token for table headers and
// rows, e.g. "config_error" becomes "Config Error".
func categoryLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}
