package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

const (
	maxSheetNameLength = 31
	rowNumberColumn    = "row_number"
	defaultSheet       = "Sheet1"
)

// XLSX collects records into a workbook saved by Close. Each stream gets its
// own worksheet; the header grows as new data keys appear.
type XLSX struct {
	path   string
	file   *excelize.File
	sheets map[string]*sheetState
	names  map[string]bool
}

type sheetState struct {
	name string
	// columns maps data keys to 1-based column numbers; column 1 is row_number.
	columns map[string]int
	nextRow int
}

// NewXLSX creates a sink that writes the workbook to path.
func NewXLSX(path string) *XLSX {
	return &XLSX{
		path:   path,
		file:   excelize.NewFile(),
		sheets: make(map[string]*sheetState),
		names:  make(map[string]bool),
	}
}

// Write appends a record to the stream's worksheet.
func (s *XLSX) Write(_ context.Context, stream string, rec domain.RowRecord) error {
	sheet, err := s.sheet(stream)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(rec.Data))
	for k := range rec.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if _, ok := sheet.columns[k]; ok {
			continue
		}
		col := len(sheet.columns) + 2
		sheet.columns[k] = col
		if err := s.setCell(sheet.name, col, 1, k); err != nil {
			return err
		}
	}

	row := sheet.nextRow
	if err := s.setCell(sheet.name, 1, row, rec.RowNumber); err != nil {
		return err
	}
	for _, k := range keys {
		v := cellValue(rec.Data[k])
		if v == nil {
			continue
		}
		if err := s.setCell(sheet.name, sheet.columns[k], row, v); err != nil {
			return err
		}
	}
	sheet.nextRow++
	return nil
}

// Close saves the workbook.
func (s *XLSX) Close() error {
	defer s.file.Close()
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return nil
}

func (s *XLSX) sheet(stream string) (*sheetState, error) {
	if st, ok := s.sheets[stream]; ok {
		return st, nil
	}

	name := s.uniqueSheetName(stream)
	if len(s.sheets) == 0 {
		if err := s.file.SetSheetName(defaultSheet, name); err != nil {
			return nil, err
		}
	} else if _, err := s.file.NewSheet(name); err != nil {
		return nil, err
	}

	st := &sheetState{
		name:    name,
		columns: make(map[string]int),
		nextRow: 2,
	}
	if err := s.setCell(name, 1, 1, rowNumberColumn); err != nil {
		return nil, err
	}
	s.sheets[stream] = st
	s.names[strings.ToLower(name)] = true
	return st, nil
}

func (s *XLSX) setCell(sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return s.file.SetCellValue(sheet, cell, v)
}

// uniqueSheetName makes a stream name a valid worksheet name that is not
// already taken; names compare case-insensitively.
func (s *XLSX) uniqueSheetName(stream string) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, stream)
	base = strings.Trim(base, "'")
	if base == "" {
		base = "stream"
	}
	base = truncate(base, maxSheetNameLength)

	name := base
	for n := 2; s.names[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		name = truncate(base, maxSheetNameLength-len(suffix)) + suffix
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// cellValue stores numbers as numbers where possible.
func cellValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
