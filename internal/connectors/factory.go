package connectors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft/excel"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driving"
)

// DefaultType is used when a config document does not name a connector type.
const DefaultType = "microsoft-excel-online"

// typeKey optionally selects the connector in a config document.
const typeKey = "source_type"

// ErrUnsupportedType indicates a connector type with no registered builder.
var ErrUnsupportedType = errors.New("unsupported connector type")

// Builder creates a source from a raw config document.
type Builder func(raw map[string]any) (driving.Source, error)

// Factory creates sources based on their configuration.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory creates a new factory with the built-in connectors registered.
func NewFactory() *Factory {
	f := &Factory{builders: make(map[string]Builder)}
	f.Register(DefaultType, excel.NewSource)
	return f
}

// Register adds or replaces the builder for a connector type.
func (f *Factory) Register(connectorType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[connectorType] = builder
}

// Create builds the source named by the document's source_type, or the
// default connector when it has none.
func (f *Factory) Create(raw map[string]any) (driving.Source, error) {
	connectorType := DefaultType
	if v, ok := raw[typeKey].(string); ok && strings.TrimSpace(v) != "" {
		connectorType = strings.TrimSpace(v)
	}

	f.mu.RLock()
	builder, ok := f.builders[connectorType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, connectorType)
	}

	source, err := builder(raw)
	if err != nil {
		return nil, fmt.Errorf("%s config: %w", connectorType, err)
	}
	return source, nil
}

// SupportedTypes returns the registered connector types in sorted order.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
