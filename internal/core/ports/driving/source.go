package driving

import (
	"context"
	"iter"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

// Source is a configured connector that can be checked, discovered and read.
type Source interface {
	// Type returns the connector type identifier.
	Type() string

	// Check verifies that every configured stream is reachable.
	Check(ctx context.Context) error

	// Discover returns the catalog of streams exposed by the configuration.
	Discover() domain.Catalog

	// ReadStream returns the records of the named stream.
	// Returns ErrUnknownStream if no stream has that name.
	ReadStream(ctx context.Context, name string) (iter.Seq[domain.RowRecord], error)
}

// SyncOrchestrator copies stream records from a source into a record sink.
type SyncOrchestrator interface {
	// Sync reads the named streams, or every stream when names is empty.
	Sync(ctx context.Context, names []string) (*domain.SyncResult, error)
}
