package main

import (
	"fmt"
	"os"

	"github.com/pifon/rmsmeter/cmd"
	"github.com/pifon/rmsmeter/internal/conf"
	"github.com/pifon/rmsmeter/internal/errors"
	"github.com/pifon/rmsmeter/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, err := conf.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing config: %v\n", err)
		return 1
	}

	rootCmd := cmd.RootCommand(ctx)
	err = rootCmd.Execute()

	if err != nil {
		logger.Global().Module("main").Error("rmsmeter failed", logger.Error(err))
	}

	if reporter, ok := errors.GetTelemetryReporter().(*errors.SentryReporter); ok {
		reporter.Flush()
	}
	if closeErr := logger.Global().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
	}

	if err != nil {
		return 1
	}
	return 0
}
