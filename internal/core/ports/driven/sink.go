package driven

import (
	"context"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

// RecordSink receives the records of one sync run.
type RecordSink interface {
	Write(ctx context.Context, stream string, rec domain.RowRecord) error

	// Close flushes buffered records. The sink must not be used afterwards.
	Close() error
}
