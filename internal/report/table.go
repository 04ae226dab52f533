package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// RenderTable writes rows as a pipe table whose columns are padded to the
// widest cell by display width.
func RenderTable(w io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}
	for i := range widths {
		widths[i] = max(widths[i], 3)
	}

	line := func(row []string) string {
		var sb strings.Builder
		sb.WriteString("|")
		for j := 0; j < colCount; j++ {
			content := ""
			if j < len(row) {
				content = row[j]
			}
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(content, widths[j]))
			sb.WriteString(" |")
		}
		return sb.String()
	}

	sep := make([]string, colCount)
	for i, wd := range widths {
		sep[i] = strings.Repeat("-", wd)
	}

	if _, err := fmt.Fprintln(w, line(headers)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, line(sep)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, line(row)); err != nil {
			return err
		}
	}
	return nil
}

// DistributionRows formats a distribution for RenderTable.
func DistributionRows(dist []LabelCount) [][]string {
	rows := make([][]string, len(dist))
	for i, d := range dist {
		rows[i] = []string{d.Label, fmt.Sprint(d.Count), fmt.Sprintf("%.1f%%", d.Percent)}
	}
	return rows
}
