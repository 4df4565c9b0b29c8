package excel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

func credentials() map[string]any {
	return map[string]any{
		"tenant_id":     "tenant",
		"client_id":     "client",
		"client_secret": "secret",
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	raw := credentials()
	raw["drive_id"] = "drive-1"
	raw["workbook_item_id"] = "item-1"
	raw["worksheet_name"] = "Sheet1"

	cfg, err := ParseConfig(raw)

	require.NoError(t, err)
	assert.Equal(t, []string{microsoft.DefaultScope}, cfg.Scopes)
	assert.Equal(t, microsoft.DefaultAuthorityHost, cfg.AuthorityHost)
	assert.Equal(t, microsoft.DefaultGraphBaseURL, cfg.GraphBaseURL)
	assert.Equal(t, microsoft.DefaultRetryConfig(), cfg.Retry)
	require.Len(t, cfg.Workbooks, 1)
	assert.Equal(t, domain.Workbook{
		DriveID:        "drive-1",
		WorkbookItemID: "item-1",
		WorksheetName:  "Sheet1",
		HeaderRow:      DefaultHeaderRow,
	}, cfg.Workbooks[0])
}

func TestParseConfig_MissingCredentials(t *testing.T) {
	_, err := ParseConfig(map[string]any{"client_id": "client", "worksheet_name": "Sheet1"})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"tenant_id", "client_secret"}, cfgErr.Missing)
	assert.Equal(t, "missing required configuration: tenant_id, client_secret", err.Error())
}

func TestParseConfig_Overrides(t *testing.T) {
	raw := credentials()
	raw["scopes"] = "https://graph.microsoft.com/.default, offline_access"
	raw["authority_host"] = "https://login.example.com/"
	raw["graph_base_url"] = "https://graph.example.com/beta/"
	raw["request_timeout_seconds"] = json.Number("30")
	raw["max_retries"] = json.Number("0")
	raw["initial_backoff_seconds"] = 0.5
	raw["max_backoff_seconds"] = "10"
	raw["worksheet_name"] = "Sheet1"

	cfg, err := ParseConfig(raw)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://graph.microsoft.com/.default", "offline_access"}, cfg.Scopes)
	assert.Equal(t, "https://login.example.com", cfg.AuthorityHost)
	assert.Equal(t, "https://graph.example.com/beta", cfg.GraphBaseURL)
	assert.Equal(t, microsoft.RetryConfig{
		RequestTimeout: 30 * time.Second,
		MaxRetries:     0,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}, cfg.Retry)
}

func TestParseConfig_InvalidRetrySettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "zero timeout", key: "request_timeout_seconds", value: 0},
		{name: "negative retries", key: "max_retries", value: -1},
		{name: "fractional retries", key: "max_retries", value: 1.5},
		{name: "negative backoff", key: "initial_backoff_seconds", value: json.Number("-2")},
		{name: "non numeric", key: "max_backoff_seconds", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := credentials()
			raw["worksheet_name"] = "Sheet1"
			raw[tt.key] = tt.value

			_, err := ParseConfig(raw)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Field)
		})
	}
}

func TestParseConfig_WorkbooksInheritGlobals(t *testing.T) {
	raw := credentials()
	raw["sharepoint_hostname"] = "contoso.sharepoint.com"
	raw["sharepoint_site_path"] = "sites/Finance"
	raw["header_row"] = 2
	raw["workbooks"] = []any{
		map[string]any{
			"stream_name":               "budget",
			"sharepoint_directory_path": "Reports",
			"excel_file_name":           "budget.xlsx",
			"worksheet_name":            "Budget",
		},
		map[any]any{
			"drive_id":         "drive-1",
			"workbook_item_id": "item-1",
			"worksheet_name":   "Raw",
			"range_address":    "A1:C5",
			"header_row":       0,
		},
	}

	cfg, err := ParseConfig(raw)

	require.NoError(t, err)
	require.Len(t, cfg.Workbooks, 2)
	assert.Equal(t, domain.Workbook{
		StreamName:              "budget",
		SharePointHostname:      "contoso.sharepoint.com",
		SharePointSitePath:      "sites/Finance",
		SharePointDirectoryPath: "Reports",
		ExcelFileName:           "budget.xlsx",
		WorksheetName:           "Budget",
		HeaderRow:               2,
	}, cfg.Workbooks[0])
	assert.Equal(t, "drive-1", cfg.Workbooks[1].DriveID)
	assert.Equal(t, "A1:C5", cfg.Workbooks[1].RangeAddress)
	assert.Equal(t, 0, cfg.Workbooks[1].HeaderRow)
}

func TestParseConfig_InvalidWorkbookReportsIndex(t *testing.T) {
	raw := credentials()
	raw["workbooks"] = []any{
		map[string]any{"worksheet_name": "ok"},
		map[string]any{"worksheet_name": "bad", "header_row": -1},
	}

	_, err := ParseConfig(raw)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, keyHeaderRow, cfgErr.Field)
	assert.Contains(t, err.Error(), "workbooks[1]")
}

func TestParseWorkbook_RequiresWorksheet(t *testing.T) {
	_, err := ParseWorkbook(map[string]any{"drive_id": "d", "worksheet_name": "  "})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{keyWorksheetName}, cfgErr.Missing)
}

func TestWorkbookConfigs(t *testing.T) {
	t.Run("legacy single workbook", func(t *testing.T) {
		raw := credentials()
		raw["worksheet_name"] = "Sheet1"

		entries, err := WorkbookConfigs(raw)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Sheet1", entries[0]["worksheet_name"])
		assert.Equal(t, "tenant", entries[0]["tenant_id"])
	})

	t.Run("entry overrides global", func(t *testing.T) {
		raw := credentials()
		raw["worksheet_name"] = "Global"
		raw["workbooks"] = []any{map[string]any{"worksheet_name": "Local"}}

		entries, err := WorkbookConfigs(raw)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Local", entries[0]["worksheet_name"])
		assert.NotContains(t, entries[0], "workbooks")
	})

	t.Run("non object entry", func(t *testing.T) {
		raw := credentials()
		raw["workbooks"] = []any{"Sheet1"}

		_, err := WorkbookConfigs(raw)

		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "workbooks[0]", cfgErr.Field)
	})

	t.Run("nothing to read", func(t *testing.T) {
		_, err := WorkbookConfigs(credentials())

		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, []string{keyWorkbooks}, cfgErr.Missing)
	})
}
