// SPDX-License-Identifier: MPL-2.0

// Package watch notices edits to module manifests, bundler configurations
// and type-check configurations under the UI directory, so the pipeline can
// be rebuilt from scratch.
//
// Events are coalesced: the callback fires once per quiet period with every
// manifest that changed, and never runs twice at the same time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/bleepbuild/bleep/internal/logsink"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

const defaultDebounce = 300 * time.Millisecond

var (
	// ManifestPatterns select the files whose change rebuilds the pipeline.
	ManifestPatterns = []string{
		"**/" + manifest.ManifestFile,
		"**/" + manifest.BundlerConfigFile,
		"**/" + manifest.TypeCheckConfigFile,
	}

	// skipDirs are never watched. They match discovery's ignore rules.
	skipDirs = []string{
		"**/node_modules",
		"**/@build",
		"**/@types",
		"**/.*",
	}

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: already running")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the directory watched recursively.
		Dir string
		// Patterns select relevant files, relative to Dir. Defaults to
		// ManifestPatterns.
		Patterns []string
		// Skip are extra directory patterns, relative to Dir, that are not
		// watched.
		Skip []string
		// Debounce is the quiet period before OnChange fires.
		Debounce time.Duration
		// OnChange receives the changed paths relative to Dir, sorted.
		OnChange func(ctx context.Context, changed []string) error
		// Sink receives watcher notices. Nil discards them.
		Sink logsink.Sink
	}

	// Watcher watches a directory tree for manifest changes.
	Watcher struct {
		cfg     Config
		dir     string
		fsw     *fsnotify.Watcher
		skip    []string
		started bool
	}
)

// New validates cfg and registers every directory under Dir.
func New(cfg Config) (*Watcher, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = ManifestPatterns
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	for _, pat := range slices.Concat(cfg.Patterns, cfg.Skip) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid pattern %q", pat)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:  cfg,
		dir:  dir,
		fsw:  fsw,
		skip: slices.Concat(skipDirs, cfg.Skip),
	}
	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers changes until ctx ends. OnChange runs on the calling
// goroutine, so events arriving meanwhile are coalesced into the next call.
func (w *Watcher) Run(ctx context.Context) error {
	if w.started {
		return ErrAlreadyRunning
	}
	w.started = true
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, ok := w.relevant(ev)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.cfg.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.notice(err.Error())

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)

			if w.cfg.OnChange != nil {
				if err := w.cfg.OnChange(ctx, changed); err != nil {
					w.notice(err.Error())
				}
			}
		}
	}
}

// relevant filters an event and returns the path relative to Dir. New
// directories are added to the watch as a side effect.
func (w *Watcher) relevant(ev fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.skipped(filepath.ToSlash(filepath.Dir(rel))) {
		return "", false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.skipped(rel) {
				if err := w.addTree(ev.Name); err != nil {
					w.notice(err.Error())
				}
			}
			return "", false
		}
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	return rel, matchAny(w.cfg.Patterns, rel)
}

func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.dir, path)
		if path != w.dir && w.skipped(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch: add %q: %w", root, err)
	}
	return nil
}

// skipped reports whether the directory rel, or one of its parents, is
// excluded.
func (w *Watcher) skipped(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	for dir := rel; dir != "." && dir != "/"; dir = filepath.ToSlash(filepath.Dir(dir)) {
		if matchAny(w.skip, dir) {
			return true
		}
	}
	return false
}

func (w *Watcher) notice(text string) {
	if w.cfg.Sink != nil {
		w.cfg.Sink.Error(logsink.SourceBleep, "watch: "+text)
	}
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
