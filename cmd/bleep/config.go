// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bleepbuild/bleep/internal/config"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// newConfigCommand creates the `bleep config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect bleep configuration",
		Long: `Inspect bleep configuration.

Configuration is read from <root>/bleep.cue, or from the file given with
--config, and can be overridden with BLEEP_* environment variables, e.g.
BLEEP_LOG_COLOR=false or BLEEP_HOOKS_RUNTIME=virtual.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}

			var out string
			switch format {
			case formatCUE:
				out = config.GenerateCUE(cfg)
			case formatTOML:
				if out, err = config.GenerateTOML(cfg); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatCUE, formatTOML)
			}

			source := path
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintln(app.stderr, SubtitleStyle.Render("config file: "+source))
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}
	showCmd.Flags().StringVar(&format, "format", formatCUE, "output format (cue or toml)")

	cfgCmd.AddCommand(showCmd)
	return cfgCmd
}
