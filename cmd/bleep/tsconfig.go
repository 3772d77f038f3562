// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bleepbuild/bleep/internal/tsproject"
)

func newTSConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "tsconfig",
		Short: "Write the type-check descriptors and exit",
		Long: `Write the type-check descriptors and exit.

The descriptor directory is wiped and regenerated: one descriptor per module
that has a tsconfig.json, plus the aggregate descriptor that references every
module whose scripts run the type-checker. Editors can point at the aggregate
to get the same project references the watch command uses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cfg, path)
			if err != nil {
				return err
			}
			if err := validateWorkspace(ws); err != nil {
				return err
			}

			composer := &tsproject.Composer{Dir: cfg.DescriptorPath()}
			res, err := composer.Compose(ws.Graph)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.stdout, "%s %d descriptors in %s\n",
				SuccessStyle.Render("wrote"), len(res.Descriptors), cfg.DescriptorPath())
			fmt.Fprintf(app.stdout, "aggregate: %s\n", filepath.Base(res.Aggregate))
			for _, name := range res.Referenced {
				fmt.Fprintf(app.stdout, "  references %s\n", ModuleStyle.Render(name))
			}
			return nil
		},
	}
}
