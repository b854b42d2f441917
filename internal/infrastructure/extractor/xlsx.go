package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX flattens every sheet into tab-separated lines, one row per
// line, with a sheet header so answers can cite where a value came from.
func extractXLSX(raw []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		wroteHeader := false
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			if !wroteHeader {
				builder.WriteString("Sheet: " + sheet + "\n")
				wroteHeader = true
			}
			builder.WriteString(line)
			builder.WriteByte('\n')
		}
		if wroteHeader {
			builder.WriteByte('\n')
		}
	}
	return strings.TrimSpace(builder.String()), nil
}
