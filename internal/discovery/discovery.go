// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bleepbuild/bleep/internal/issue"
	"github.com/bleepbuild/bleep/pkg/bundlecfg"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

type (
	// Options tunes Discover.
	Options struct {
		// Exclude lists module names to leave out entirely.
		Exclude []string
		// Manifest is passed to manifest.Parse for every module.
		Manifest manifest.Options
	}

	// Result is what Discover found.
	Result struct {
		// Modules are in walk order.
		Modules     []*manifest.Module
		Diagnostics []Diagnostic
	}
)

// Discover walks uiDir and parses every module it finds. A module that
// cannot be parsed stops discovery with an actionable error.
func Discover(uiDir string, opts Options) (*Result, error) {
	res := &Result{}

	for dir, err := range Walk(uiDir) {
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("discover modules").
				WithResource(uiDir).
				WithSuggestion("Check that ui_dir points at the directory holding the module folders").
				Wrap(err).
				BuildError()
		}

		name := filepath.Base(dir)
		if slices.Contains(opts.Exclude, name) {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Severity: SeverityInfo,
				Code:     CodeModuleExcluded,
				Message:  fmt.Sprintf("module %q excluded by configuration", name),
				Path:     dir,
			})
			continue
		}

		m, err := manifest.Parse(dir, opts.Manifest)
		if err != nil {
			return nil, parseFailure(dir, err)
		}
		res.Modules = append(res.Modules, m)
		res.Diagnostics = append(res.Diagnostics, inspect(m)...)
	}

	return res, nil
}

func parseFailure(dir string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("read module").
		WithResource(dir).
		Wrap(err)

	switch {
	case errors.Is(err, bundlecfg.ErrSyntax), errors.Is(err, bundlecfg.ErrNoProjectCall):
		ctx.WithIssue(issue.BundlerConfigInvalidId).
			WithSuggestion("Keep the " + manifest.BundlerConfigFile + " targets a plain object literal")
	default:
		ctx.WithIssue(issue.ManifestParseFailedId).
			WithSuggestion("Check " + manifest.ManifestFile + " for JSON syntax errors")
	}
	return ctx.BuildError()
}

func inspect(m *manifest.Module) []Diagnostic {
	var diags []Diagnostic
	if len(m.BundleTargets) == 0 {
		diags = append(diags, Diagnostic{
			Severity: SeverityInfo,
			Code:     CodeNoBundleTargets,
			Message:  fmt.Sprintf("module %q declares no bundle targets", m.Name),
			Path:     m.Root,
		})
	}
	if m.DeclaresTypeCheck() && !m.HasTypeCheckConfig {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeTypeCheckWithoutConfig,
			Message:  fmt.Sprintf("module %q runs %s but has no %s", m.Name, "tsc", manifest.TypeCheckConfigFile),
			Path:     m.Root,
		})
	}
	return diags
}
