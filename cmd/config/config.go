// Package config implements the rmsmeter config command.
package config

import (
	"github.com/spf13/cobra"

	"github.com/pifon/rmsmeter/internal/conf"
)

// Command creates the config command printing the effective settings.
func Command(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  "Prints the settings after merging defaults, the config file and RMSMETER_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.WriteYAML(cmd.OutOrStdout(), ctx.Settings)
		},
	}
}
