// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/bleepbuild/bleep/internal/logsink"
)

const thisIsUndefined = "this-is-undefined-in-esm"

type (
	// ESBuild is an Engine running one esbuild watch context per target.
	ESBuild struct {
		Options Options
		// Sink receives engine notices such as unsupported plugins.
		Sink logsink.Sink
	}

	esbuildSession struct {
		mu          sync.Mutex
		contexts    []api.BuildContext
		outstanding map[*esbuildResult]struct{}
		inFlight    int
		// starting suppresses KindEnd until every context is watching.
		starting bool
		closed   bool
		handler     Handler
	}

	esbuildResult struct {
		once    sync.Once
		session *esbuildSession
	}
)

// Watch creates a context for every target, in order, and starts watching.
func (e *ESBuild) Watch(ctx context.Context, targets []Target, h Handler) (Session, error) {
	s := &esbuildSession{
		outstanding: make(map[*esbuildResult]struct{}),
		handler:     h,
		starting:    true,
	}

	if err := h(Event{Kind: KindStart}); err != nil {
		return nil, err
	}

	reported := make(map[string]bool)
	for _, t := range targets {
		rules, err := e.copyRules(t, reported)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}

		bc, cerr := api.Context(e.buildOptions(t, []api.Plugin{s.lifecycle(t, rules)}))
		if cerr != nil {
			_ = s.Close()
			return nil, fmt.Errorf("target %q: %w", t.Name, contextError(cerr))
		}
		s.mu.Lock()
		s.contexts = append(s.contexts, bc)
		s.mu.Unlock()

		if err := bc.Watch(api.WatchOptions{}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("watch %q: %w", t.Name, err)
		}
	}
	s.started()

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}

func (e *ESBuild) buildOptions(t Target, plugins []api.Plugin) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:   []string{t.Input},
		Outfile:       t.Outfile,
		AbsWorkingDir: t.Dir,
		Bundle:        true,
		Write:         true,
		Format:        api.FormatIIFE,
		GlobalName:    t.GlobalName,
		Target:        languageTarget(e.Options.Target),
		Tsconfig:      t.Tsconfig,
		LogLevel:      api.LogLevelSilent,
		Plugins:       plugins,
	}
	if e.Options.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if t.SuppressThisUndefined {
		opts.LogOverride = map[string]api.LogLevel{thisIsUndefined: api.LogLevelSilent}
	}
	return opts
}

// copyRules collects the copy rules of a target. Other plugins are
// reported once per name and skipped.
func (e *ESBuild) copyRules(t Target, reported map[string]bool) ([]CopyRule, error) {
	var out []CopyRule
	for _, ref := range t.Plugins {
		if ref.Name != CopyPluginName {
			if !reported[ref.Name] && e.Sink != nil {
				e.Sink.Log(logsink.SourceBundler, fmt.Sprintf("plugin %q is not supported, ignoring it", ref.Name))
			}
			reported[ref.Name] = true
			continue
		}
		rules, err := CopyRules(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, rules...)
	}
	return out, nil
}

// lifecycle turns esbuild callbacks for one target into session events and
// applies the target's copy rules after each clean build.
func (s *esbuildSession) lifecycle(t Target, rules []CopyRule) api.Plugin {
	var started time.Time
	return api.Plugin{
		Name: "bleep-lifecycle",
		Setup: func(b api.PluginBuild) {
			b.OnStart(func() (api.OnStartResult, error) {
				started = time.Now()
				s.begin()
				if err := s.handler(Event{Kind: KindBundleStart, Output: t.Name}); err != nil {
					return api.OnStartResult{Errors: []api.Message{{Text: err.Error()}}}, nil
				}
				return api.OnStartResult{}, nil
			})
			b.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				_ = s.handler(s.endEvent(t, result, time.Since(started), rules))
				s.end()
				return api.OnEndResult{}, nil
			})
		},
	}
}

// endEvent reports a finished build. A failed copy fails the output.
func (s *esbuildSession) endEvent(t Target, result *api.BuildResult, d time.Duration, rules []CopyRule) Event {
	ev := Event{
		Kind:     KindBundleEnd,
		Output:   t.Name,
		Duration: d,
		Warnings: formatMessages(result.Warnings, api.WarningMessage),
		Result:   s.retain(),
	}
	if len(result.Errors) > 0 {
		ev.Kind = KindError
		ev.Err = errors.New(strings.Join(formatMessages(result.Errors, api.ErrorMessage), "\n"))
		return ev
	}
	for _, r := range rules {
		if _, err := r.Apply(t.Dir); err != nil {
			ev.Kind = KindError
			ev.Err = fmt.Errorf("copy %s: %w", r.Src, err)
			return ev
		}
	}
	return ev
}

func (s *esbuildSession) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
}

func (s *esbuildSession) end() {
	s.mu.Lock()
	s.inFlight--
	idle := s.inFlight == 0 && !s.closed && !s.starting
	s.mu.Unlock()

	if idle {
		_ = s.handler(Event{Kind: KindEnd})
	}
}

// started ends the startup phase. Builds that finished during startup are
// reported as one KindEnd.
func (s *esbuildSession) started() {
	s.mu.Lock()
	s.starting = false
	idle := s.inFlight == 0 && !s.closed
	s.mu.Unlock()

	if idle {
		_ = s.handler(Event{Kind: KindEnd})
	}
}

func (s *esbuildSession) retain() *esbuildResult {
	r := &esbuildResult{session: s}
	s.mu.Lock()
	s.outstanding[r] = struct{}{}
	s.mu.Unlock()
	return r
}

// Close disposes every context and releases results nobody closed.
func (s *esbuildSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	contexts := s.contexts
	s.contexts = nil
	s.mu.Unlock()

	for _, bc := range contexts {
		bc.Dispose()
	}

	s.mu.Lock()
	results := make([]*esbuildResult, 0, len(s.outstanding))
	for r := range s.outstanding {
		results = append(results, r)
	}
	s.mu.Unlock()
	for _, r := range results {
		_ = r.Close()
	}
	return nil
}

// Outstanding returns how many results are still open.
func (s *esbuildSession) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

func (r *esbuildResult) Close() error {
	r.once.Do(func() {
		r.session.mu.Lock()
		delete(r.session.outstanding, r)
		r.session.mu.Unlock()
	})
	return nil
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}
	out := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
	for i, m := range out {
		out[i] = strings.TrimRight(m, "\n")
	}
	return out
}

func contextError(err *api.ContextError) error {
	if len(err.Errors) > 0 {
		return errors.New(strings.Join(formatMessages(err.Errors, api.ErrorMessage), "\n"))
	}
	return errors.New("invalid build options")
}

func languageTarget(name string) api.Target {
	switch strings.ToLower(name) {
	case "es5":
		return api.ES5
	case "es2016":
		return api.ES2016
	case "es2017":
		return api.ES2017
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "es2021":
		return api.ES2021
	case "es2022":
		return api.ES2022
	case "esnext":
		return api.ESNext
	default:
		return api.ES2015
	}
}
