package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
)

const (
	tablePadding = 2
	maxCellWidth = 72
)

// writeTable prints aligned columns. Cells wider than maxCellWidth are
// truncated with an ellipsis.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	cell := func(row []string, idx int) string {
		if idx >= len(row) {
			return ""
		}
		value := row[idx]
		if ansi.PrintableRuneWidth(value) > maxCellWidth {
			value = runewidth.Truncate(value, maxCellWidth, "…")
		}
		return value
	}

	widths := make([]int, colCount)
	measure := func(row []string) {
		for idx := 0; idx < colCount; idx++ {
			if w := ansi.PrintableRuneWidth(cell(row, idx)); w > widths[idx] {
				widths[idx] = w
			}
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	writer := bufio.NewWriter(out)
	writeRow := func(row []string) {
		for idx := 0; idx < colCount; idx++ {
			value := cell(row, idx)
			writer.WriteString(value)
			if idx < colCount-1 {
				writer.WriteString(strings.Repeat(" ", widths[idx]-ansi.PrintableRuneWidth(value)+tablePadding))
			}
		}
		writer.WriteString("\n")
	}

	if len(headers) > 0 {
		writeRow(headers)
	}
	for _, row := range rows {
		writeRow(row)
	}
	return writer.Flush()
}
