package excel

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driven"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driving"
	"github.com/vinhhap/airbyte-custom-connectors/internal/logger"
)

// Ensure Connector implements the interface.
var _ driving.Source = (*Connector)(nil)

// checkRangeAddress is read during a connection check when no range is configured.
const checkRangeAddress = "A1:A1"

// Stream is one workbook exposed as a named record stream.
type Stream struct {
	Name     string
	Index    int
	Workbook domain.Workbook
}

// Description identifies the stream's workbook in error messages.
func (s Stream) Description() string {
	return DescribeWorkbook(s.Index, s.Workbook)
}

// Connector reads Excel Online worksheets via Microsoft Graph.
type Connector struct {
	config  *Config
	client  *Client
	streams []Stream
}

// New creates a connector that sends requests through graph.
func New(cfg *Config, graph driven.GraphRequester) *Connector {
	return &Connector{
		config:  cfg,
		client:  NewClient(graph, cfg.GraphBaseURL),
		streams: buildStreams(cfg.Workbooks),
	}
}

// NewFromConfig creates a connector authenticated with the configured app
// registration.
func NewFromConfig(cfg *Config, opts ...microsoft.Option) (*Connector, error) {
	tokens, err := microsoft.NewClientCredentialsProvider(microsoft.CredentialsConfig{
		TenantID:      cfg.TenantID,
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		Scopes:        cfg.Scopes,
		AuthorityHost: cfg.AuthorityHost,
		HTTPClient:    &http.Client{Timeout: cfg.Retry.RequestTimeout},
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, microsoft.NewClient(tokens, cfg.Retry, opts...)), nil
}

// NewSource parses a raw config document into an authenticated connector.
func NewSource(raw map[string]any) (driving.Source, error) {
	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, err
	}
	c, err := NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "microsoft-excel-online"
}

// Client exposes the resolution and fetch operations.
func (c *Connector) Client() *Client {
	return c.client
}

// Streams returns one stream per configured workbook.
func (c *Connector) Streams() []Stream {
	return c.streams
}

// Check verifies authentication, workbook access and the worksheet for every
// workbook. Without a configured range only a single cell is read.
func (c *Connector) Check(ctx context.Context) error {
	for _, s := range c.streams {
		loc, err := c.client.ResolveLocation(ctx, s.Workbook)
		if err == nil {
			if loc.RangeAddress == "" {
				loc.RangeAddress = checkRangeAddress
			}
			_, err = c.client.WorksheetValues(ctx, loc)
		}
		if err != nil {
			return fmt.Errorf("connection check failed for %s: %w", s.Description(), err)
		}
		logger.Debug("excel: check passed for %s", s.Description())
	}
	return nil
}

// Read resolves the stream's workbook, fetches its values and returns the
// rows as records. Every call resolves and fetches again.
func (c *Connector) Read(ctx context.Context, s Stream) (iter.Seq[domain.RowRecord], error) {
	loc, err := c.client.ResolveLocation(ctx, s.Workbook)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", s.Description(), err)
	}
	logger.Debug("excel: stream %s resolved to drive=%s item=%s worksheet=%q",
		s.Name, loc.DriveID, loc.WorkbookItemID, loc.WorksheetName)

	values, err := c.client.WorksheetValues(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Description(), err)
	}
	logger.Debug("excel: stream %s fetched %d rows", s.Name, len(values))

	return Records(values, s.Workbook.HeaderRow), nil
}

// Discover returns one full-refresh stream per workbook.
func (c *Connector) Discover() domain.Catalog {
	catalog := domain.Catalog{Streams: make([]domain.StreamDescriptor, 0, len(c.streams))}
	for _, s := range c.streams {
		catalog.Streams = append(catalog.Streams, domain.StreamDescriptor{
			Name:               s.Name,
			JSONSchema:         JSONSchema(),
			SupportedSyncModes: []string{"full_refresh"},
		})
	}
	return catalog
}

// ReadStream reads the stream with the given name.
func (c *Connector) ReadStream(ctx context.Context, name string) (iter.Seq[domain.RowRecord], error) {
	for _, s := range c.streams {
		if s.Name == name {
			return c.Read(ctx, s)
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStream, name)
}

// buildStreams names streams after stream_name, then worksheet_name, then
// worksheet_{n}; repeated names get a _2, _3, ... suffix.
func buildStreams(workbooks []domain.Workbook) []Stream {
	streams := make([]Stream, 0, len(workbooks))
	counts := make(map[string]int)

	for i, wb := range workbooks {
		base := wb.StreamName
		if base == "" {
			base = wb.WorksheetName
		}
		if base == "" {
			base = fmt.Sprintf("worksheet_%d", i+1)
		}

		counts[base]++
		name := base
		if n := counts[base]; n > 1 {
			name = fmt.Sprintf("%s_%d", base, n)
		}

		streams = append(streams, Stream{Name: name, Index: i, Workbook: wb})
	}
	return streams
}

// DescribeWorkbook renders the identifying fields of a workbook.
func DescribeWorkbook(idx int, wb domain.Workbook) string {
	var parts []string
	for _, f := range []struct{ key, val string }{
		{keyStreamName, wb.StreamName},
		{keyExcelFileName, wb.ExcelFileName},
		{keyWorksheetName, wb.WorksheetName},
		{keyDriveID, wb.DriveID},
		{keyWorkbookItemID, wb.WorkbookItemID},
	} {
		if f.val != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", f.key, f.val))
		}
	}
	if wb.SharePointHostname != "" || wb.SharePointSitePath != "" {
		parts = append(parts, fmt.Sprintf("sharepoint=%q", wb.SharePointHostname+"/"+strings.Trim(wb.SharePointSitePath, "/")))
	}

	suffix := "(no details)"
	if len(parts) > 0 {
		suffix = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("workbooks[%d] %s", idx, suffix)
}

// JSONSchema is the record schema shared by every stream.
func JSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"row_number": map[string]any{"type": "integer"},
			"data":       map[string]any{"type": "object", "additionalProperties": true},
		},
	}
}
