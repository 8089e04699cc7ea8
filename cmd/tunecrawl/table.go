package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one column of a rendered table. MaxWidth wraps
// longer cells; zero leaves the column unbounded.
type tableColumn struct {
	Header   string
	Align    text.Align
	MaxWidth int
}

var (
	fieldValueColumns = []tableColumn{
		{Header: "Field"},
		{Header: "Value", MaxWidth: 60},
	}
	trackColumns = []tableColumn{
		{Header: "Title", MaxWidth: 36},
		{Header: "Artist", MaxWidth: 24},
		{Header: "Genre"},
		{Header: "Source"},
		{Header: "Duration", Align: text.AlignRight},
		{Header: "Popularity", Align: text.AlignRight},
	}
)

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.Header
		align := col.Align
		if align == text.AlignDefault {
			align = text.AlignLeft
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    col.MaxWidth,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}
