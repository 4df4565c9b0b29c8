package excel

import (
	"fmt"
	"iter"
	"strings"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

// Records converts a value matrix into row records.
//
// With headerRow == 0 every row is keyed col_1..col_n by position. With
// headerRow >= 1 that 1-based row supplies the column names and is not
// emitted; RowNumber still counts it, so the gap is visible downstream.
// Empty header cells and columns past the header fall back to col_{n}.
// The matrix is not modified, and the sequence can be ranged over again.
func Records(values domain.ValueMatrix, headerRow int) iter.Seq[domain.RowRecord] {
	return func(yield func(domain.RowRecord) bool) {
		if len(values) == 0 {
			return
		}

		headerIdx := headerRow - 1
		hasHeader := headerRow > 0 && headerIdx < len(values)

		var header []string
		if hasHeader {
			header = headerNames(values[headerIdx])
		}

		for i, row := range values {
			if hasHeader && i == headerIdx {
				continue
			}

			data := make(map[string]any, len(row))
			for j, cell := range row {
				data[columnKey(header, j)] = cell
			}
			if !yield(domain.RowRecord{RowNumber: i + 1, Data: data}) {
				return
			}
		}
	}
}

func headerNames(row []any) []string {
	names := make([]string, len(row))
	for i, cell := range row {
		if cell != nil {
			names[i] = strings.TrimSpace(asString(cell))
		}
	}
	return names
}

func columnKey(header []string, j int) string {
	if j < len(header) && header[j] != "" {
		return header[j]
	}
	return fmt.Sprintf("col_%d", j+1)
}
