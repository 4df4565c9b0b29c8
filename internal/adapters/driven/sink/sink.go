// Package sink writes row records to their destination: stdout, a SQLite
// database or an Excel workbook.
package sink

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driven"
)

// ErrUnknownSink is returned for an output target that names no sink.
var ErrUnknownSink = errors.New("unknown output target")

// Ensure the sinks implement the interface.
var (
	_ driven.RecordSink = (*JSONL)(nil)
	_ driven.RecordSink = (*SQLite)(nil)
	_ driven.RecordSink = (*XLSX)(nil)
)

// Open selects a sink from an output target:
//
//	jsonl (or empty)  RECORD messages on stdout
//	sqlite:<path>     rows in a SQLite database
//	xlsx:<path>       one worksheet per stream
func Open(target string, stdout io.Writer, syncID string) (driven.RecordSink, error) {
	kind, path, _ := strings.Cut(strings.TrimSpace(target), ":")

	switch kind {
	case "", "jsonl":
		return NewJSONL(stdout), nil
	case "sqlite":
		if path == "" {
			return nil, fmt.Errorf("%w: sqlite needs a path, e.g. sqlite:records.db", ErrUnknownSink)
		}
		s, err := OpenSQLite(path, syncID)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "xlsx":
		if path == "" {
			return nil, fmt.Errorf("%w: xlsx needs a path, e.g. xlsx:records.xlsx", ErrUnknownSink)
		}
		return NewXLSX(path), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSink, target)
}
