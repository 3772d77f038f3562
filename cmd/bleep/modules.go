// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bleepbuild/bleep/internal/discovery"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

func newModulesCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules found under the UI directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cfg, path)
			if err != nil {
				return err
			}
			renderModules(app.stdout, ws.Graph.Modules())
			renderDiagnostics(app.stdout, ws.Diagnostics)
			return nil
		},
	}
}

func renderModules(w io.Writer, mods []*manifest.Module) {
	if len(mods) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no modules found)"))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TitleStyle.Padding(0, 1)
			case col == 0:
				return ModuleStyle.Padding(0, 1)
			default:
				return lipgloss.NewStyle().Padding(0, 1)
			}
		}).
		Headers("MODULE", "DEPENDS ON", "BUNDLES", "TYPECHECK", "HOOKS")

	for _, m := range mods {
		t.Row(
			m.Name,
			dash(strings.Join(m.Dependencies, ", ")),
			dash(bundleNames(m)),
			typeCheckSummary(m),
			strconv.Itoa(len(m.Hooks.Pre))+" pre, "+strconv.Itoa(len(m.Hooks.Post))+" post",
		)
	}
	fmt.Fprintln(w, t.String())
}

func renderDiagnostics(w io.Writer, diags []discovery.Diagnostic) {
	for _, d := range diags {
		style := SubtitleStyle
		if d.Severity == discovery.SeverityWarning {
			style = WarningStyle
		}
		fmt.Fprintln(w, style.Render(string(d.Severity)+": "+d.Message))
	}
}

func bundleNames(m *manifest.Module) string {
	names := make([]string, 0, len(m.BundleTargets))
	for _, t := range m.BundleTargets {
		name := t.Output
		if t.IsMainBuild {
			name += "*"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func typeCheckSummary(m *manifest.Module) string {
	switch {
	case !m.HasTypeCheckConfig:
		return "-"
	case len(m.TypeCheckOptions) > 0:
		return strings.Join(m.TypeCheckOptions, ", ")
	case m.DeclaresTypeCheck():
		return "yes"
	default:
		return "template"
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
