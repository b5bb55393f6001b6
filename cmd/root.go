package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	configcmd "github.com/pifon/rmsmeter/cmd/config"
	"github.com/pifon/rmsmeter/cmd/detect"
	"github.com/pifon/rmsmeter/cmd/meter"
	"github.com/pifon/rmsmeter/internal/conf"
	"github.com/pifon/rmsmeter/internal/errors"
	"github.com/pifon/rmsmeter/internal/logger"
)

// Version is set at build time
var Version = "dev"

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "rmsmeter",
		Short:         "Streaming RMS loudness meter for raw PCM on stdin",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: search ., ~/.config/rmsmeter, /etc/rmsmeter)")

	rootCmd.AddCommand(
		meter.Command(ctx),
		detect.Command(ctx),
		configcmd.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := ctx.Load(configFile); err != nil {
			return err
		}
		return initialize(cmd, ctx.Settings)
	}

	return rootCmd
}

// initialize sets up logging and error telemetry once settings are loaded.
func initialize(cmd *cobra.Command, settings *conf.Settings) error {
	logCfg := settings.Logging
	if settings.Meter.Verbose {
		levels := make(map[string]string, len(logCfg.ModuleLevels)+1)
		for module, level := range logCfg.ModuleLevels {
			levels[module] = level
		}
		levels["meter"] = "debug"
		logCfg.ModuleLevels = levels
	}

	cl, err := logger.NewCentralLogger(&logCfg, logger.WithConsoleWriter(cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(cl)

	if settings.Sentry.Enabled {
		reporter, err := errors.InitSentry(settings.Sentry.DSN, "rmsmeter@"+Version)
		if err != nil {
			cl.Module("main").Warn("error telemetry disabled", logger.Error(err))
			return nil
		}
		errors.SetTelemetryReporter(reporter)
	}

	return nil
}
