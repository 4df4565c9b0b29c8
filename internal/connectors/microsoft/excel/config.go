package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

// Configuration keys.
const (
	keyTenantID       = "tenant_id"
	keyClientID       = "client_id"
	keyClientSecret   = "client_secret"
	keyScopes         = "scopes"
	keyAuthorityHost  = "authority_host"
	keyGraphBaseURL   = "graph_base_url"
	keyRequestTimeout = "request_timeout_seconds"
	keyMaxRetries     = "max_retries"
	keyInitialBackoff = "initial_backoff_seconds"
	keyMaxBackoff     = "max_backoff_seconds"
	keyWorkbooks      = "workbooks"

	keyStreamName              = "stream_name"
	keyDriveID                 = "drive_id"
	keyWorkbookItemID          = "workbook_item_id"
	keyWorksheetName           = "worksheet_name"
	keyRangeAddress            = "range_address"
	keySharePointHostname      = "sharepoint_hostname"
	keySharePointSitePath      = "sharepoint_site_path"
	keySharePointDirectoryPath = "sharepoint_directory_path"
	keyExcelFileName           = "excel_file_name"
	keyHeaderRow               = "header_row"
)

// DefaultHeaderRow treats the first row as the header.
const DefaultHeaderRow = 1

// Config holds Excel Online connector configuration.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Scopes defaults to the Graph .default scope.
	Scopes []string
	// AuthorityHost overrides the Microsoft identity platform host.
	AuthorityHost string
	GraphBaseURL  string
	Retry         microsoft.RetryConfig
	// Workbooks holds one entry per configured workbook, global fields merged in.
	Workbooks []domain.Workbook
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scopes:        []string{microsoft.DefaultScope},
		AuthorityHost: microsoft.DefaultAuthorityHost,
		GraphBaseURL:  microsoft.DefaultGraphBaseURL,
		Retry:         microsoft.DefaultRetryConfig(),
	}
}

// ParseConfig extracts connector configuration from a raw config document.
// Every workbook is parsed; the first invalid one is reported with its index.
func ParseConfig(raw map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	cfg.TenantID = strings.TrimSpace(stringValue(raw, keyTenantID))
	cfg.ClientID = strings.TrimSpace(stringValue(raw, keyClientID))
	cfg.ClientSecret = stringValue(raw, keyClientSecret)

	var missing []string
	for _, f := range []struct{ key, val string }{
		{keyTenantID, cfg.TenantID},
		{keyClientID, cfg.ClientID},
		{keyClientSecret, cfg.ClientSecret},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	if scopes := stringList(raw, keyScopes); len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	if v := strings.TrimSpace(stringValue(raw, keyAuthorityHost)); v != "" {
		cfg.AuthorityHost = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(stringValue(raw, keyGraphBaseURL)); v != "" {
		cfg.GraphBaseURL = strings.TrimRight(v, "/")
	}

	retry, err := parseRetryConfig(raw)
	if err != nil {
		return nil, err
	}
	cfg.Retry = retry

	entries, err := WorkbookConfigs(raw)
	if err != nil {
		return nil, err
	}
	for i, entry := range entries {
		wb, err := ParseWorkbook(entry)
		if err != nil {
			return nil, fmt.Errorf("workbooks[%d]: %w", i, err)
		}
		cfg.Workbooks = append(cfg.Workbooks, wb)
	}

	return cfg, nil
}

func parseRetryConfig(raw map[string]any) (microsoft.RetryConfig, error) {
	def := microsoft.DefaultRetryConfig()

	timeout, err := floatValue(raw, keyRequestTimeout, def.RequestTimeout.Seconds())
	if err != nil {
		return def, err
	}
	if timeout <= 0 {
		return def, &ConfigurationError{Field: keyRequestTimeout, Reason: "must be greater than 0"}
	}

	retries, err := intValue(raw, keyMaxRetries, def.MaxRetries)
	if err != nil {
		return def, err
	}
	if retries < 0 {
		return def, &ConfigurationError{Field: keyMaxRetries, Reason: "must be >= 0"}
	}

	initial, err := floatValue(raw, keyInitialBackoff, def.InitialBackoff.Seconds())
	if err != nil {
		return def, err
	}
	if initial < 0 {
		return def, &ConfigurationError{Field: keyInitialBackoff, Reason: "must be >= 0"}
	}

	maxBackoff, err := floatValue(raw, keyMaxBackoff, def.MaxBackoff.Seconds())
	if err != nil {
		return def, err
	}
	if maxBackoff < 0 {
		return def, &ConfigurationError{Field: keyMaxBackoff, Reason: "must be >= 0"}
	}

	return microsoft.RetryConfig{
		RequestTimeout: seconds(timeout),
		MaxRetries:     retries,
		InitialBackoff: seconds(initial),
		MaxBackoff:     seconds(maxBackoff),
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ParseWorkbook extracts a single workbook description.
// Location fields are validated later, during resolution.
func ParseWorkbook(raw map[string]any) (domain.Workbook, error) {
	wb := domain.Workbook{
		StreamName:              strings.TrimSpace(stringValue(raw, keyStreamName)),
		DriveID:                 strings.TrimSpace(stringValue(raw, keyDriveID)),
		WorkbookItemID:          strings.TrimSpace(stringValue(raw, keyWorkbookItemID)),
		SharePointHostname:      strings.TrimSpace(stringValue(raw, keySharePointHostname)),
		SharePointSitePath:      strings.TrimSpace(stringValue(raw, keySharePointSitePath)),
		SharePointDirectoryPath: strings.TrimSpace(stringValue(raw, keySharePointDirectoryPath)),
		ExcelFileName:           strings.TrimSpace(stringValue(raw, keyExcelFileName)),
		WorksheetName:           stringValue(raw, keyWorksheetName),
		RangeAddress:            stringValue(raw, keyRangeAddress),
	}

	if strings.TrimSpace(wb.WorksheetName) == "" {
		return wb, &ConfigurationError{Missing: []string{keyWorksheetName}}
	}

	headerRow, err := intValue(raw, keyHeaderRow, DefaultHeaderRow)
	if err != nil {
		return wb, err
	}
	if headerRow < 0 {
		return wb, &ConfigurationError{Field: keyHeaderRow, Reason: "must be >= 0 (0 means no header row)"}
	}
	wb.HeaderRow = headerRow

	return wb, nil
}

// WorkbookConfigs fans a config document out into one merged config per workbook.
//
// The preferred shape is {...global fields, "workbooks": [{...}, ...]}, where each
// entry is merged over the global fields. A config without "workbooks" but with
// a worksheet_name is treated as a single legacy workbook.
func WorkbookConfigs(raw map[string]any) ([]map[string]any, error) {
	if list, ok := raw[keyWorkbooks].([]any); ok {
		out := make([]map[string]any, 0, len(list))
		for i, item := range list {
			entry, ok := toStringMap(item)
			if !ok {
				return nil, &ConfigurationError{Field: fmt.Sprintf("workbooks[%d]", i), Reason: "must be an object"}
			}
			out = append(out, mergeWorkbook(raw, entry))
		}
		return out, nil
	}

	if _, ok := raw[keyWorksheetName]; ok {
		return []map[string]any{mergeWorkbook(raw, nil)}, nil
	}

	return nil, &ConfigurationError{
		Missing: []string{keyWorkbooks},
		Hint:    "missing required configuration, provide 'workbooks' (preferred) or legacy workbook fields",
	}
}

func mergeWorkbook(global, entry map[string]any) map[string]any {
	merged := make(map[string]any, len(global)+len(entry))
	for k, v := range global {
		if k != keyWorkbooks {
			merged[k] = v
		}
	}
	for k, v := range entry {
		merged[k] = v
	}
	return merged
}

// toStringMap normalises decoded objects; YAML may produce map[any]any.
func toStringMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
