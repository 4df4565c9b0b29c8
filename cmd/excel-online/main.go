package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vinhhap/airbyte-custom-connectors/internal/adapters/driven/config/file"
	"github.com/vinhhap/airbyte-custom-connectors/internal/adapters/driven/sink"
	"github.com/vinhhap/airbyte-custom-connectors/internal/adapters/driving/cli"
	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Inject services into CLI commands
	cli.SetServices(&cli.Services{
		NewLoader: func(envFile string) cli.ConfigLoader { return file.NewLoader(envFile) },
		NewSource: connectors.NewFactory().Create,
		OpenSink:  sink.Open,
	})

	if err := cli.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
