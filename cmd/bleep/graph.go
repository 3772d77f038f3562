// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bleepbuild/bleep/internal/depgraph"
)

func newGraphCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the module dependency graph",
		Long: `Show the module dependency graph.

Prints the edge map, the order bundles are started in (by number of direct
dependencies) and a dependency-first order. Cycles and chains deeper than
max_dependency_depth are reported as warnings.`,
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
			renderGraph(app.stdout, ws.Graph)
			return nil
		},
	}
}

func renderGraph(w io.Writer, g *depgraph.Graph) {
	edges := g.Edges()
	keys := make([]string, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintln(w, TitleStyle.Render("Edges"))
	if len(keys) == 0 {
		fmt.Fprintln(w, "  "+SubtitleStyle.Render("(none)"))
	}
	for _, k := range keys {
		deps := strings.Join(edges[k], ", ")
		if deps == "" {
			deps = SubtitleStyle.Render("(none)")
		}
		fmt.Fprintf(w, "  %s -> %s\n", ModuleStyle.Render(k), deps)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Bundle order"))
	for i, t := range g.BundleOrder(g.Modules()) {
		fmt.Fprintf(w, "  %d. %s (weight %d)\n", i+1, ModuleStyle.Render(t.Output), g.Weight(t))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Dependency order"))
	order, err := g.Order()
	if err != nil {
		fmt.Fprintln(w, "  "+WarningStyle.Render("warning: "+err.Error()))
	}
	for i, name := range order {
		fmt.Fprintf(w, "  %d. %s\n", i+1, ModuleStyle.Render(name))
	}

	if err := g.Validate(); err != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("warning: "+err.Error()))
	}
}
