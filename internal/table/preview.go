package table

import (
	"fmt"
	"io"

	"showtimes-scraper/internal/geocode"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Preview renders up to limit rows as a table for the terminal, limit <= 0 renders all of them.
func Preview(w io.Writer, rows []geocode.EnrichedRow, limit int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	shown := rows
	if limit > 0 && len(rows) > limit {
		shown = rows[:limit]
	}
	for _, row := range shown {
		cells := Record(row)
		tableRow := make(table.Row, len(cells))
		for i, c := range cells {
			tableRow[i] = c
		}
		t.AppendRow(tableRow)
	}
	if len(shown) < len(rows) {
		t.AppendFooter(table.Row{fmt.Sprintf("... %d more rows", len(rows)-len(shown))})
	}

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}
