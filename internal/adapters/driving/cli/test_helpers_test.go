package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinhhap/airbyte-custom-connectors/internal/adapters/driven/config/file"
	"github.com/vinhhap/airbyte-custom-connectors/internal/adapters/driven/sink"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driving"
	"github.com/vinhhap/airbyte-custom-connectors/internal/logger"
)

// fakeSource implements driving.Source for testing.
type fakeSource struct {
	checkErr error
	streams  map[string][]domain.RowRecord
	order    []string
}

func (f *fakeSource) Type() string { return "fake" }

func (f *fakeSource) Check(_ context.Context) error { return f.checkErr }

func (f *fakeSource) Discover() domain.Catalog {
	var c domain.Catalog
	for _, name := range f.order {
		c.Streams = append(c.Streams, domain.StreamDescriptor{Name: name})
	}
	return c
}

func (f *fakeSource) ReadStream(_ context.Context, name string) (iter.Seq[domain.RowRecord], error) {
	records, ok := f.streams[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStream, name)
	}
	return slices.Values(records), nil
}

func fakeSourceFactory(src driving.Source) SourceFactory {
	return func(_ map[string]any) (driving.Source, error) { return src, nil }
}

func failingSourceFactory(err error) SourceFactory {
	return func(_ map[string]any) (driving.Source, error) { return nil, err }
}

func defaultTestServices(factory SourceFactory) *Services {
	return &Services{
		NewLoader: func(envFile string) ConfigLoader {
			return file.NewLoader(envFile).WithLookup(func(string) (string, bool) { return "", false })
		},
		NewSource: factory,
		OpenSink:  sink.Open,
	}
}

// resetCLI installs services and clears flag state, restoring both after the test.
func resetCLI(t *testing.T, s *Services) {
	t.Helper()

	oldLoader, oldSource, oldSink := newLoader, newSource, openSink
	newLoader, newSource, openSink = nil, nil, nil
	SetServices(s)

	configPath, envFile, verbose = "", "", false
	readOutput, readStreams, readCatalog = "jsonl", nil, ""

	logger.SetOutput(new(bytes.Buffer))

	t.Cleanup(func() {
		newLoader, newSource, openSink = oldLoader, oldSource, oldSink
		logger.Reset()
		logger.SetOutput(os.Stderr)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
}

// runCLI executes the root command and returns what it wrote to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

var errBoom = errors.New("boom")
