package domain

import (
	"errors"
	"time"
)

// ErrUnknownStream indicates a stream name that the configuration does not expose.
var ErrUnknownStream = errors.New("unknown stream")

// SyncResult summarises a sync run.
type SyncResult struct {
	SyncID   string
	Streams  []StreamResult
	Duration time.Duration
}

// StreamResult is the outcome for a single stream.
type StreamResult struct {
	Name    string
	Records int
}

// TotalRecords sums the records written across streams.
func (r *SyncResult) TotalRecords() int {
	total := 0
	for _, s := range r.Streams {
		total += s.Records
	}
	return total
}
