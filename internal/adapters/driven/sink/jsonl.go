package sink

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

// JSONL writes one protocol message per line.
type JSONL struct {
	enc *json.Encoder
	now func() time.Time
}

// NewJSONL creates a sink writing to w.
func NewJSONL(w io.Writer) *JSONL {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONL{enc: enc, now: time.Now}
}

// WithClock replaces the emitted_at time source.
func (s *JSONL) WithClock(now func() time.Time) *JSONL {
	s.now = now
	return s
}

// Write emits a RECORD message.
func (s *JSONL) Write(_ context.Context, stream string, rec domain.RowRecord) error {
	return s.Emit(domain.Message{
		Type: domain.MessageTypeRecord,
		Record: &domain.RecordMessage{
			Stream:    stream,
			Data:      rec,
			EmittedAt: s.now().UnixMilli(),
		},
	})
}

// Emit writes any protocol message.
func (s *JSONL) Emit(msg domain.Message) error {
	return s.enc.Encode(msg)
}

func (s *JSONL) Close() error { return nil }
