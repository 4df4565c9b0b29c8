package domain

// ValueMatrix is the raw 2D cell matrix returned for a worksheet range.
// Cells are strings, json.Number, booleans or nil.
type ValueMatrix [][]any

// RowRecord is one worksheet row keyed by column name.
type RowRecord struct {
	// RowNumber is the 1-based position in the source matrix, header included.
	RowNumber int            `json:"row_number"`
	Data      map[string]any `json:"data"`
}
