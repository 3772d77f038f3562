// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/bleepbuild/bleep/internal/config"
	"github.com/bleepbuild/bleep/internal/depgraph"
	"github.com/bleepbuild/bleep/internal/discovery"
	"github.com/bleepbuild/bleep/internal/issue"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

type (
	// App wires the services shared by every command. Command handlers
	// receive it instead of reaching for globals.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies are the injection points of NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// workspace is a discovered module tree with its dependency graph.
	workspace struct {
		Config      *config.Config
		ConfigPath  string
		Graph       *depgraph.Graph
		Diagnostics []discovery.Diagnostic
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// loadConfig resolves the configuration for the root flags.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, string, error) {
	cfg, path, err := a.Config.LoadWithPath(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		Root:           flags.root,
	})
	if err != nil {
		return nil, "", &ExitError{Code: ExitConfig, Err: err}
	}
	return cfg, path, nil
}

// loadWorkspace discovers the modules of cfg and builds their graph. It does
// not check dependency depth; callers decide whether a deep chain is fatal.
func loadWorkspace(cfg *config.Config, path string) (*workspace, error) {
	res, err := discovery.Discover(cfg.UIPath(), discovery.Options{
		Exclude: cfg.Exclude,
		Manifest: manifest.Options{
			Policy:          cfg.BundlePolicy,
			ConventionEntry: cfg.ConventionEntry,
		},
	})
	if err != nil {
		return nil, err
	}

	g, err := depgraph.Build(res.Modules, depgraph.WithMaxDepth(cfg.MaxDependencyDepth))
	if err != nil {
		return nil, graphFailure(cfg.UIPath(), err)
	}
	return &workspace{
		Config:      cfg,
		ConfigPath:  path,
		Graph:       g,
		Diagnostics: res.Diagnostics,
	}, nil
}

// validateWorkspace fails when a dependency chain exceeds the configured
// depth.
func validateWorkspace(ws *workspace) error {
	if err := ws.Graph.Validate(); err != nil {
		return graphFailure(ws.Config.UIPath(), err)
	}
	return nil
}

func graphFailure(uiDir string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("build the module graph").
		WithResource(uiDir).
		Wrap(err)

	switch {
	case errors.Is(err, depgraph.ErrDuplicateModule), errors.Is(err, depgraph.ErrDuplicateOutput):
		ctx.WithIssue(issue.DuplicateModuleId).
			WithSuggestion("Rename one of the directories or bundle outputs so every name is unique")
	case errors.Is(err, depgraph.ErrDependencyDepth):
		ctx.WithIssue(issue.DependencyDepthExceededId).
			WithSuggestion("Run 'bleep graph' to see the chain and break the cycle in package.json").
			WithSuggestion("Raise max_dependency_depth if the chain is legitimate")
	case errors.Is(err, depgraph.ErrUnknownModule):
		ctx.WithSuggestion("Run 'bleep modules' to list the module names")
	}
	return ctx.BuildError()
}
