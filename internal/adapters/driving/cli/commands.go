package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driving"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/services"
	"github.com/vinhhap/airbyte-custom-connectors/internal/logger"
)

var errServicesNotConfigured = errors.New("cli services not configured")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials and access to every configured worksheet",
	Long: `Authenticate, resolve every configured workbook and read a single cell
(or the configured range) from each worksheet.

The outcome is written as a CONNECTION_STATUS message. Configuration and
access problems are reported as FAILED rather than as a command error.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the streams exposed by the configuration",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read worksheet rows and write them as records",
	Long: `Resolve each workbook, fetch its worksheet values and write every row.

Output targets:
  jsonl            RECORD messages on stdout (default)
  sqlite:<path>    a records table in a SQLite database
  xlsx:<path>      an Excel workbook with one sheet per stream

Streams are selected with --streams or --catalog. The catalog file may be a
configured catalog, a discovered catalog or the saved output of discover.

Examples:
  excel-online read -c config.yaml
  excel-online read -c config.json --streams sales,costs -o sqlite:records.db
  excel-online discover -c config.yaml > catalog.jsonl
  excel-online read -c config.yaml --catalog catalog.jsonl`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "excel-online %s\n", version)
	},
}

// Flags for read.
var (
	readOutput  string
	readStreams []string
	readCatalog string
)

func init() {
	readCmd.Flags().StringVarP(&readOutput, "output", "o", "jsonl", "output target: jsonl, sqlite:<path> or xlsx:<path>")
	readCmd.Flags().StringSliceVar(&readStreams, "streams", nil, "streams to read (default all)")
	readCmd.Flags().StringVar(&readCatalog, "catalog", "", "catalog file selecting the streams to read")

	rootCmd.AddCommand(checkCmd, discoverCmd, readCmd, versionCmd)
}

func loadConfig() (map[string]any, error) {
	if newLoader == nil || newSource == nil {
		return nil, errServicesNotConfigured
	}
	if configPath == "" {
		return nil, errors.New("--config is required")
	}
	return newLoader(envFile).Load(configPath)
}

func loadSource() (driving.Source, error) {
	raw, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newSource(raw)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	raw, err := loadConfig()
	if err != nil {
		return err
	}

	status := domain.ConnectionStatus{Status: domain.StatusSucceeded}
	source, err := newSource(raw)
	if err == nil {
		err = source.Check(cmd.Context())
	}
	if err != nil {
		logger.Error("check: %v", err)
		status = domain.ConnectionStatus{Status: domain.StatusFailed, Message: err.Error()}
	}

	return writeMessage(cmd.OutOrStdout(), domain.Message{
		Type:             domain.MessageTypeConnectionStatus,
		ConnectionStatus: &status,
	})
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	source, err := loadSource()
	if err != nil {
		return err
	}

	catalog := source.Discover()
	return writeMessage(cmd.OutOrStdout(), domain.Message{
		Type:    domain.MessageTypeCatalog,
		Catalog: &catalog,
	})
}

func runRead(cmd *cobra.Command, _ []string) error {
	names, err := selectedStreams()
	if err != nil {
		return err
	}

	source, err := loadSource()
	if err != nil {
		return err
	}
	if openSink == nil {
		return errServicesNotConfigured
	}

	syncID := uuid.NewString()
	logger.With("sync_id", syncID)

	sink, err := openSink(readOutput, cmd.OutOrStdout(), syncID)
	if err != nil {
		return err
	}

	result, err := services.NewSyncOrchestrator(source, sink, syncID).Sync(cmd.Context(), names)
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	logger.Info("read: wrote %d records from %d streams in %s",
		result.TotalRecords(), len(result.Streams), result.Duration.Round(time.Millisecond))
	return nil
}

func selectedStreams() ([]string, error) {
	if readCatalog == "" {
		return readStreams, nil
	}
	if len(readStreams) > 0 {
		return nil, errors.New("--catalog and --streams cannot be used together")
	}
	return loadCatalogStreams(readCatalog)
}

func writeMessage(w io.Writer, msg domain.Message) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(msg)
}
