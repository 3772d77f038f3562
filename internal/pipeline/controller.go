// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/bleepbuild/bleep/internal/bundler"
	"github.com/bleepbuild/bleep/internal/depgraph"
	"github.com/bleepbuild/bleep/internal/hooks"
	"github.com/bleepbuild/bleep/internal/logsink"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

// ErrAlreadyStarted is returned when Run is called twice.
var ErrAlreadyStarted = errors.New("pipeline already started")

type (
	// TypeCheckProcess is a running type-checker.
	TypeCheckProcess interface {
		WaitReady(ctx context.Context) error
		Done() <-chan struct{}
		Err() error
		Stop()
	}

	// StartTypeCheckFunc launches the type-checker against the aggregate
	// descriptor, writing its output to out.
	StartTypeCheckFunc func(ctx context.Context, aggregate string, out io.Writer) (TypeCheckProcess, error)

	// Config holds the collaborators of a Controller.
	Config struct {
		Graph *depgraph.Graph
		// Aggregate is the aggregate descriptor path.
		Aggregate string
		// OutDir receives the bundles.
		OutDir string
		// Select restricts bundling to these modules and their
		// dependencies. Empty means every module.
		Select []string

		Sink           logsink.Sink
		Engine         bundler.Engine
		Hooks          hooks.Runtime
		StartTypeCheck StartTypeCheckFunc

		// AbortOnPreFailure fails the bundle whose pre hook failed.
		AbortOnPreFailure bool
		// RSS reports process memory for bundle-end lines. Defaults to
		// logsink.RSS.
		RSS func() uint64
	}

	// Controller runs the watch pipeline once.
	Controller struct {
		cfg     Config
		targets []*manifest.BundleTarget
		byOut   map[string]*manifest.BundleTarget

		state atomic.Int32

		// eventMu serializes event handling.
		eventMu sync.Mutex
		post    conc.WaitGroup
		// hookCtx is cancelled by Shutdown.
		hookCtx    context.Context
		hookCancel context.CancelFunc

		mu         sync.Mutex
		checker    TypeCheckProcess
		session    bundler.Session
		checkerErr error
	}
)

// New prepares a controller. Selection errors, such as an unknown module or
// a dependency chain deeper than the graph allows, are returned here.
func New(cfg Config) (*Controller, error) {
	if cfg.RSS == nil {
		cfg.RSS = logsink.RSS
	}

	mods, err := cfg.Graph.Closure(cfg.Select...)
	if err != nil {
		return nil, err
	}
	if len(cfg.Select) == 0 {
		mods = cfg.Graph.Modules()
	}

	c := &Controller{
		cfg:     cfg,
		targets: cfg.Graph.BundleOrder(mods),
		byOut:   make(map[string]*manifest.BundleTarget),
	}
	for _, t := range c.targets {
		c.byOut[t.Output] = t
	}
	c.hookCtx, c.hookCancel = context.WithCancel(context.Background())
	c.state.Store(int32(StateCreated))
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Targets returns the bundle targets in start order.
func (c *Controller) Targets() []*manifest.BundleTarget {
	return c.targets
}

// TypeCheckErr returns why the type-checker exited after bundling started,
// or nil while it runs.
func (c *Controller) TypeCheckErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkerErr
}

// Run starts the type-checker, then the bundler once the first clean build
// was reported, and keeps both running until ctx ends. It shuts everything
// down before returning.
func (c *Controller) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateCreated), int32(StateTypeChecking)) {
		return ErrAlreadyStarted
	}

	c.log("type-checking...")
	proc, err := c.cfg.StartTypeCheck(ctx, c.cfg.Aggregate, c.cfg.Sink.Writer(logsink.SourceTypeCheck))
	if err != nil {
		c.state.Store(int32(StateFailed))
		return err
	}
	c.mu.Lock()
	c.checker = proc
	c.mu.Unlock()

	if err := proc.WaitReady(ctx); err != nil {
		c.Shutdown()
		if ctx.Err() != nil {
			return nil
		}
		c.state.Store(int32(StateFailed))
		return err
	}

	if !c.state.CompareAndSwap(int32(StateTypeChecking), int32(StateBundling)) {
		return nil
	}
	c.log(fmt.Sprintf("bundling %d targets...", len(c.targets)))

	session, err := c.cfg.Engine.Watch(ctx, bundler.TargetsFor(c.targets, c.cfg.OutDir), c.HandleEvent)
	if err != nil {
		c.Shutdown()
		c.state.Store(int32(StateFailed))
		return fmt.Errorf("start bundler: %w", err)
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-proc.Done():
		c.checkerExited(proc.Err())
		<-ctx.Done()
	}

	c.Shutdown()
	return nil
}

func (c *Controller) checkerExited(err error) {
	if err == nil {
		err = errors.New("exited")
	}
	c.mu.Lock()
	c.checkerErr = err
	c.mu.Unlock()
	c.cfg.Sink.Error(logsink.SourceTypeCheck, "type-checker stopped: "+err.Error())
}

// Shutdown cancels running hooks, closes the bundler session, stops the
// type-checker and waits for post hooks to return. It is safe to call more
// than once.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	session, checker := c.session, c.checker
	c.session, c.checker = nil, nil
	c.mu.Unlock()

	// A pre hook blocks the build it belongs to, and closing the session
	// waits for that build.
	c.hookCancel()
	if session != nil {
		if err := session.Close(); err != nil {
			c.cfg.Sink.Error(logsink.SourceBundler, err.Error())
		}
	}
	if checker != nil {
		checker.Stop()
	}
	c.post.Wait()

	if !c.State().IsTerminal() {
		c.state.Store(int32(StateStopped))
	}
}

// HandleEvent reacts to one bundler event. It is the bundler.Handler of the
// session and is safe for concurrent use.
func (c *Controller) HandleEvent(ev bundler.Event) error {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	switch ev.Kind {
	case bundler.KindBundleStart:
		return c.bundleStart(ev)
	case bundler.KindBundleEnd:
		c.bundleEnd(ev)
	case bundler.KindError:
		c.bundleError(ev)
	case bundler.KindEnd:
		c.log("idle...")
	}
	return nil
}

// bundleStart runs the pre hooks of a main build before the bundler reads
// its sources.
func (c *Controller) bundleStart(ev bundler.Event) error {
	t, ok := c.byOut[ev.Output]
	if !ok || !t.IsMainBuild {
		return nil
	}
	for _, cmd := range t.Module.Hooks.Pre {
		if err := c.runHook(c.hookCtx, t.Module, cmd); err != nil && c.cfg.AbortOnPreFailure {
			return err
		}
	}
	return nil
}

func (c *Controller) bundleEnd(ev bundler.Event) {
	c.cfg.Sink.Log(logsink.SourceBundler, fmt.Sprintf("bundled '%s' - %dms [%s]",
		ev.Output, ev.Duration.Round(time.Millisecond).Milliseconds(), logsink.FormatRSS(c.cfg.RSS())))
	for _, w := range ev.Warnings {
		c.cfg.Sink.Log(logsink.SourceBundler, w)
	}
	closeResult(c.cfg.Sink, ev.Result)

	t, ok := c.byOut[ev.Output]
	if !ok || !t.IsMainBuild || len(t.Module.Hooks.Post) == 0 {
		return
	}
	m := t.Module
	c.post.Go(func() {
		for _, cmd := range m.Hooks.Post {
			if err := c.runHook(c.hookCtx, m, cmd); err != nil {
				return
			}
		}
	})
}

func (c *Controller) bundleError(ev bundler.Event) {
	msg := "build failed"
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	if ev.Output != "" {
		msg = fmt.Sprintf("'%s': %s", ev.Output, msg)
	}
	c.cfg.Sink.Error(logsink.SourceBundler, msg)
	closeResult(c.cfg.Sink, ev.Result)
}

// runHook runs one hook in the module root with output tagged by the module
// name. Failures are logged and returned.
func (c *Controller) runHook(ctx context.Context, m *manifest.Module, cmd manifest.Command) error {
	c.cfg.Sink.Log(m.Name, cmd.String())
	out := c.cfg.Sink.Writer(m.Name)
	err := c.cfg.Hooks.Run(ctx, m.Root, cmd, out)
	logsink.Flush(out)
	if err != nil {
		c.cfg.Sink.Error(m.Name, fmt.Sprintf("hook %q failed: %v", cmd.String(), err))
	}
	return err
}

func (c *Controller) log(text string) {
	c.cfg.Sink.Log(logsink.SourceBleep, text)
}

func closeResult(sink logsink.Sink, r bundler.Result) {
	if r == nil {
		return
	}
	if err := r.Close(); err != nil {
		sink.Error(logsink.SourceBundler, "release build result: "+err.Error())
	}
}
