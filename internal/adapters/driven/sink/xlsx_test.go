package sink

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

func TestXLSX_WritesOneSheetPerStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")
	ctx := context.Background()
	s := NewXLSX(path)

	require.NoError(t, s.Write(ctx, "sales", domain.RowRecord{RowNumber: 2, Data: map[string]any{"name": "alice", "amount": json.Number("10")}}))
	require.NoError(t, s.Write(ctx, "sales", domain.RowRecord{RowNumber: 3, Data: map[string]any{"name": "bob", "region": "EU"}}))
	require.NoError(t, s.Write(ctx, "costs", domain.RowRecord{RowNumber: 1, Data: map[string]any{"col_1": true}}))
	require.NoError(t, s.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"sales", "costs"}, f.GetSheetList())

	rows, err := f.GetRows("sales")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"row_number", "amount", "name", "region"},
		{"2", "10", "alice"},
		{"3", "", "bob", "EU"},
	}, rows)

	rows, err = f.GetRows("costs")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"row_number", "col_1"}, {"1", "TRUE"}}, rows)
}

func TestXLSX_RowNumberKeyDoesNotClobberColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")
	s := NewXLSX(path)

	require.NoError(t, s.Write(context.Background(), "s", domain.RowRecord{RowNumber: 5, Data: map[string]any{"row_number": "x"}}))
	require.NoError(t, s.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("s")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"row_number", "row_number"}, {"5", "x"}}, rows)
}

func TestXLSX_UniqueSheetName(t *testing.T) {
	s := NewXLSX("unused.xlsx")
	defer s.file.Close()

	assert.Equal(t, "a_b_c", s.uniqueSheetName("a/b:c"))
	assert.Equal(t, "stream", s.uniqueSheetName("''"))
	assert.Len(t, []rune(s.uniqueSheetName(strings.Repeat("x", 40))), maxSheetNameLength)

	s.names["sales"] = true
	assert.Equal(t, "Sales_2", s.uniqueSheetName("Sales"))

	long := strings.Repeat("y", 31)
	s.names[long] = true
	got := s.uniqueSheetName(long)
	assert.Len(t, got, maxSheetNameLength)
	assert.True(t, strings.HasSuffix(got, "_2"))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, int64(42), cellValue(json.Number("42")))
	assert.Equal(t, 1.5, cellValue(json.Number("1.5")))
	assert.Equal(t, "text", cellValue("text"))
	assert.Nil(t, cellValue(nil))
}
