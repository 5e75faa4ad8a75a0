package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// fromExcel renders every non-empty sheet as a Markdown table under a
// heading with the sheet name. The first row is the table header.
func fromExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		width := 0
		for _, row := range rows {
			width = max(width, len(row))
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", sheet)
		for i, row := range rows {
			writeTableRow(&b, row, width)
			if i == 0 {
				b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func writeTableRow(b *strings.Builder, row []string, width int) {
	b.WriteByte('|')
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(row) {
			cell = strings.ReplaceAll(strings.TrimSpace(row[i]), "|", `\|`)
		}
		b.WriteString(" " + cell + " |")
	}
	b.WriteByte('\n')
}
