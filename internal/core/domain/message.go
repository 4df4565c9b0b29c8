package domain

// MessageType identifies a protocol message written to stdout.
type MessageType string

// Message types emitted by the connector.
const (
	MessageTypeRecord           MessageType = "RECORD"
	MessageTypeCatalog          MessageType = "CATALOG"
	MessageTypeConnectionStatus MessageType = "CONNECTION_STATUS"
)

// Message is a single line of connector output.
type Message struct {
	Type             MessageType       `json:"type"`
	Record           *RecordMessage    `json:"record,omitempty"`
	Catalog          *Catalog          `json:"catalog,omitempty"`
	ConnectionStatus *ConnectionStatus `json:"connectionStatus,omitempty"`
}

// RecordMessage carries one row of a stream.
type RecordMessage struct {
	Stream    string    `json:"stream"`
	Data      RowRecord `json:"data"`
	EmittedAt int64     `json:"emitted_at"`
}

// Catalog lists the streams a configuration exposes.
type Catalog struct {
	Streams []StreamDescriptor `json:"streams"`
}

// StreamDescriptor describes one stream in a catalog.
type StreamDescriptor struct {
	Name                string         `json:"name"`
	JSONSchema          map[string]any `json:"json_schema"`
	SupportedSyncModes  []string       `json:"supported_sync_modes"`
	SourceDefinedCursor bool           `json:"source_defined_cursor"`
}

// ConnectionStatus values.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// ConnectionStatus reports the outcome of a connection check.
type ConnectionStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
