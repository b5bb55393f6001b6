// Package meter implements the rmsmeter meter command.
package meter

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pifon/rmsmeter/internal/analysis"
	"github.com/pifon/rmsmeter/internal/conf"
	"github.com/pifon/rmsmeter/internal/logger"
	"github.com/pifon/rmsmeter/internal/myaudio"
	"github.com/pifon/rmsmeter/internal/observability"
)

// Command creates the meter command reading PCM from stdin.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meter",
		Short: "Print the RMS loudness of each PCM block on stdin",
		Long: `Reads signed 16-bit little-endian interleaved PCM from stdin and prints
one loudness value per block, measured on the first channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(runCtx, ctx.Settings, os.Stdin, cmd.OutOrStdout())
		},
	}

	if err := setupFlags(cmd, ctx.Viper); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures the meter flags and binds them to their settings keys.
func setupFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.IntP("rate", "r", v.GetInt("meter.samplerate"), "Sample rate in Hz")
	flags.IntP("interval", "i", v.GetInt("meter.interval"), "Block duration and output interval in ms")
	flags.IntP("blocksize", "b", v.GetInt("meter.blocksize"), "Frames per block, 0 derives it from rate and interval")
	flags.IntP("scale", "s", v.GetInt("meter.scale"), "Output value for a full-scale signal")
	flags.IntP("channels", "c", v.GetInt("meter.channels"), "Interleaved channels, only the first is measured")
	flags.BoolP("verbose", "v", v.GetBool("meter.verbose"), "Log per-block diagnostics to stderr")
	flags.IntP("zerorange", "z", v.GetInt("meter.zerorange"), "Treat samples within +/- this value as silence")
	flags.IntP("waitabove", "w", v.GetInt("meter.waitabove"), "Sleep to pace output when the remaining wait is at least this many ms, negative disables")
	flags.BoolP("showdelta", "d", v.GetBool("meter.showdelta"), "Prefix each line with the ms elapsed since the previous block")
	flags.Bool("nonblock", v.GetBool("meter.nonblock"), "Read stdin in non-blocking mode")

	bindings := map[string]string{
		"rate":      "meter.samplerate",
		"interval":  "meter.interval",
		"blocksize": "meter.blocksize",
		"scale":     "meter.scale",
		"channels":  "meter.channels",
		"verbose":   "meter.verbose",
		"zerorange": "meter.zerorange",
		"waitabove": "meter.waitabove",
		"showdelta": "meter.showdelta",
		"nonblock":  "meter.nonblock",
	}
	for flag, key := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}

// Run meters in until EOF, cancellation or a fatal error. With telemetry
// enabled the metrics endpoint runs alongside and stops with the meter.
func Run(ctx context.Context, settings *conf.Settings, in io.Reader, out io.Writer) error {
	log := logger.Global().Module("main")

	var opts []analysis.Option
	var endpoint *observability.Endpoint
	if settings.Telemetry.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return err
		}
		opts = append(opts, analysis.WithRecorder(m.Meter))
		endpoint = observability.NewEndpoint(settings.Telemetry.Listen, m)
	}

	if f, ok := in.(*os.File); ok && settings.Meter.NonBlock {
		restore, err := myaudio.SetNonblock(f)
		if err != nil {
			return err
		}
		defer func() {
			if err := restore(); err != nil {
				log.Warn("failed to restore blocking input", logger.Error(err))
			}
		}()
	}

	m, err := analysis.NewMeter(&settings.Meter, in, out, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	meterCtx, meterDone := context.WithCancel(gctx)
	defer meterDone()

	if endpoint != nil {
		g.Go(func() error {
			log.Info("telemetry endpoint listening", logger.String("listen", settings.Telemetry.Listen))
			return endpoint.Run(meterCtx)
		})
	}

	g.Go(func() error {
		// the endpoint has nothing to report once the meter stops
		defer meterDone()
		return m.Run(meterCtx)
	})

	err = g.Wait()
	log.Debug("meter stopped", logger.Uint64("blocks", m.Blocks()))
	return err
}
