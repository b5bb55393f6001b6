// Package detect implements the rmsmeter detect command.
package detect

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pifon/rmsmeter/internal/conf"
	"github.com/pifon/rmsmeter/internal/detector"
)

// Command creates the detect command reading meter lines from stdin.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Track loudness states from meter output",
		Long: `Reads meter lines from stdin and prints state, active and level events
as the input moves through idle, attack, active, sustain and respite.`,
		Example: "  arecord -f S16_LE -t raw | rmsmeter meter -d | rmsmeter detect --alevel 20 --slevel 10",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(runCtx, ctx.Settings.Detector, os.Stdin, cmd.OutOrStdout())
		},
	}

	if err := setupFlags(cmd, ctx.Viper); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.Int("alevel", v.GetInt("detector.alevel"), "Level the input must reach to start an attack")
	flags.Int("slevel", v.GetInt("detector.slevel"), "Level the input must stay below to sustain")
	flags.Duration("attack", v.GetDuration("detector.attack"), "How long the attack level must hold before active")
	flags.Duration("sustain", v.GetDuration("detector.sustain"), "How long the input must stay quiet before respite")
	flags.Duration("respite", v.GetDuration("detector.respite"), "Pause after respite before returning to idle")
	flags.Duration("update", v.GetDuration("detector.update"), "Peak evaluation period")
	flags.Bool("trace", v.GetBool("detector.trace"), "Print level events while idle")

	for _, name := range []string{"alevel", "slevel", "attack", "sustain", "respite", "update", "trace"} {
		if err := v.BindPFlag("detector."+name, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// Run feeds meter lines from in through a detector and writes events to out.
func Run(ctx context.Context, settings conf.DetectorSettings, in io.Reader, out io.Writer) error {
	d := detector.New(settings)
	return detector.NewRunner(d, out, nil).Run(ctx, in)
}
