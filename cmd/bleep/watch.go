// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/bleepbuild/bleep/internal/bundler"
	"github.com/bleepbuild/bleep/internal/config"
	"github.com/bleepbuild/bleep/internal/discovery"
	"github.com/bleepbuild/bleep/internal/hooks"
	"github.com/bleepbuild/bleep/internal/logsink"
	"github.com/bleepbuild/bleep/internal/pipeline"
	"github.com/bleepbuild/bleep/internal/tsproject"
	"github.com/bleepbuild/bleep/internal/typecheck"
	"github.com/bleepbuild/bleep/internal/watch"
)

type (
	// runner is one pipeline run, stopped by cancelling its context.
	runner interface {
		Run(ctx context.Context) error
	}

	// watchSession rebuilds the pipeline every time the manifests change.
	watchSession struct {
		cfg      *config.Config
		sink     logsink.Sink
		selected []string
		// prepare discovers the workspace and builds a fresh pipeline.
		prepare func() (runner, error)
	}
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [module...]",
		Short: "Type-check and bundle modules, rebuilding on change",
		Long: `Type-check and bundle modules, rebuilding on change.

The type-checker runs in watch mode over every module. Once it reports its
first clean build, bundling starts for the named modules and their
dependencies, or for every module when none is named. Bundles with fewer
dependencies start first.

With watch_manifests enabled, editing a package.json, rollup.config.mjs or
tsconfig.json stops everything and starts over from discovery.`,
		Example: `  bleep watch
  bleep watch site
  BLEEP_HOOKS_RUNTIME=virtual bleep watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			s := &watchSession{
				cfg:      cfg,
				sink:     logsink.New(app.stdout, logOptions(cfg)),
				selected: args,
			}
			s.prepare = s.preparePipeline
			return s.run(cmd.Context())
		},
	}
}

func logOptions(cfg *config.Config) logsink.Options {
	return logsink.Options{
		Time:  cfg.Log.Time,
		Ctx:   cfg.Log.Ctx,
		Heap:  cfg.Log.Heap,
		Color: cfg.Log.Color,
		Level: cfg.Log.Level.String(),
	}
}

// run drives pipelines until ctx ends. Errors preparing or running the
// first pipeline are returned; later ones are logged and the session waits
// for the next manifest change.
func (s *watchSession) run(ctx context.Context) error {
	if !s.cfg.WatchManifests {
		r, err := s.prepare()
		if err != nil {
			return err
		}
		return r.Run(ctx)
	}

	restart := make(chan struct{}, 1)
	w, err := watch.New(watch.Config{
		Dir:  s.cfg.UIPath(),
		Sink: s.sink,
		OnChange: func(_ context.Context, changed []string) error {
			s.log("changed: " + strings.Join(changed, ", "))
			select {
			case restart <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		return err
	}

	var wg conc.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wg.Go(func() {
		if err := w.Run(ctx); err != nil {
			s.sink.Error(logsink.SourceBleep, "manifest watcher stopped: "+err.Error())
		}
	})

	return s.loop(ctx, restart)
}

func (s *watchSession) loop(ctx context.Context, restart <-chan struct{}) error {
	for first := true; ; first = false {
		restarted, err := s.runUntilRestart(ctx, restart)
		switch {
		case ctx.Err() != nil:
			return nil
		case restarted:
			s.log("restarting...")
			continue
		case err != nil && first:
			return err
		case err != nil:
			s.sink.Error(logsink.SourceBleep, formatErrorForDisplay(err, false))
		}

		s.log("waiting for manifest changes...")
		select {
		case <-ctx.Done():
			return nil
		case <-restart:
			s.log("restarting...")
		}
	}
}

// runUntilRestart runs one pipeline. It reports true when a manifest change
// stopped it.
func (s *watchSession) runUntilRestart(ctx context.Context, restart <-chan struct{}) (bool, error) {
	r, err := s.prepare()
	if err != nil {
		return false, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(runCtx) }()

	select {
	case err := <-done:
		return false, err
	case <-restart:
		cancel()
		<-done
		return true, nil
	}
}

// preparePipeline discovers modules, writes the descriptors and assembles
// a controller with the production collaborators.
func (s *watchSession) preparePipeline() (runner, error) {
	cfg := s.cfg
	ws, err := loadWorkspace(cfg, "")
	if err != nil {
		return nil, err
	}
	for _, d := range ws.Diagnostics {
		if d.Severity == discovery.SeverityWarning {
			s.sink.Error(logsink.SourceBleep, d.Message)
		}
	}
	if err := validateWorkspace(ws); err != nil {
		return nil, err
	}

	res, err := (&tsproject.Composer{Dir: cfg.DescriptorPath()}).Compose(ws.Graph)
	if err != nil {
		return nil, err
	}
	s.log(fmt.Sprintf("found %d modules, %d type-check projects", len(ws.Graph.Modules()), len(res.Referenced)))

	rt, err := hooks.ForModules(cfg.Hooks.Runtime, cfg.Hooks.EnvFiles)
	if err != nil {
		return nil, err
	}

	ctrl, err := pipeline.New(pipeline.Config{
		Graph:     ws.Graph,
		Aggregate: res.Aggregate,
		OutDir:    cfg.OutPath(),
		Select:    s.selected,
		Sink:      s.sink,
		Engine: &bundler.ESBuild{
			Options: bundler.Options{
				OutDir:    cfg.OutPath(),
				Target:    cfg.Bundler.Target,
				Sourcemap: cfg.Bundler.Sourcemap,
			},
			Sink: s.sink,
		},
		Hooks:             rt,
		StartTypeCheck:    s.startTypeCheck,
		AbortOnPreFailure: cfg.Hooks.AbortOnPreFailure,
	})
	if err != nil {
		return nil, graphFailure(cfg.UIPath(), err)
	}
	return ctrl, nil
}

func (s *watchSession) startTypeCheck(ctx context.Context, aggregate string, out io.Writer) (pipeline.TypeCheckProcess, error) {
	p, err := typecheck.Start(ctx, typecheck.Options{
		Command:   s.cfg.TypeCheck.Command,
		Aggregate: aggregate,
		Dir:       s.cfg.Root,
		Marker:    s.cfg.TypeCheck.SuccessMarker,
		Output:    out,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *watchSession) log(text string) {
	s.sink.Log(logsink.SourceBleep, text)
}
