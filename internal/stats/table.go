package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

// formatTable lays out rows in space-separated columns sized to the widest cell.
func formatTable(headers []string, rows [][]string, aligns []align) []string {
	cols := len(headers)
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return nil
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, aligns))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, aligns))
	}
	return lines
}

func formatRow(row []string, widths []int, aligns []align) string {
	cells := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		a := alignLeft
		if i < len(aligns) {
			a = aligns[i]
		}
		cells[i] = padCell(cell, width, a)
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ")
}

func padCell(value string, width int, a align) string {
	if a == alignRight {
		return runewidth.FillLeft(value, width)
	}
	return runewidth.FillRight(value, width)
}
