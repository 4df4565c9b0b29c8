package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driven"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driving"
	"github.com/vinhhap/airbyte-custom-connectors/internal/logger"
)

var (
	// Version is set by goreleaser ldflags.
	version = "dev"

	// Verbose enables debug logging.
	verbose bool

	configPath string
	envFile    string

	// Services holds injected implementations for CLI commands.
	newLoader func(envFile string) ConfigLoader
	newSource SourceFactory
	openSink  SinkOpener
)

// ConfigLoader reads a raw configuration document.
type ConfigLoader interface {
	Load(path string) (map[string]any, error)
}

// SourceFactory builds a source from a raw configuration document.
type SourceFactory func(raw map[string]any) (driving.Source, error)

// SinkOpener opens the record sink named by an output target.
type SinkOpener func(target string, stdout io.Writer, syncID string) (driven.RecordSink, error)

// Services holds configuration for CLI commands.
type Services struct {
	NewLoader func(envFile string) ConfigLoader
	NewSource SourceFactory
	OpenSink  SinkOpener
}

// SetServices injects service implementations for CLI commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	newLoader = s.NewLoader
	newSource = s.NewSource
	openSink = s.OpenSink
}

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "excel-online",
	Short: "Read Excel Online worksheets as record streams",
	Long: `excel-online reads worksheets from workbooks stored in SharePoint or OneDrive
through Microsoft Graph and emits every row as a record.

Records are written to stdout as JSON lines, or to a SQLite database or an
Excel workbook with --output. Logs are written to stderr.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, e.g. to stop on SIGINT.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a .json, .toml or .yaml config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with EXCEL_ONLINE_* credentials (default .env if present)")

	// Use PersistentPreRunE to set verbose mode before any command executes
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return nil
	}
}
