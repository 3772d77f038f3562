// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

const (
	// KindStart is emitted once when the watch session starts.
	KindStart Kind = iota
	// KindBundleStart is emitted before an output is built.
	KindBundleStart
	// KindBundleEnd is emitted after an output was built successfully.
	KindBundleEnd
	// KindError is emitted when building an output failed.
	KindError
	// KindEnd is emitted when no build is in flight anymore.
	KindEnd
)

type (
	// Kind is the type of a bundler event.
	Kind int

	// Result is a build result retained by the bundler. It must be closed
	// once the event carrying it has been handled.
	Result interface {
		Close() error
	}

	// Event is one bundler lifecycle notification.
	Event struct {
		Kind Kind
		// Output is the bundle name; empty for KindStart and KindEnd.
		Output   string
		Duration time.Duration
		Err      error
		// Warnings are formatted bundler warnings for the output.
		Warnings []string
		// Result is set for KindBundleEnd and KindError.
		Result Result
	}

	// Handler receives events. Handlers may be called from several
	// goroutines. An error returned for KindBundleStart fails that build.
	Handler func(Event) error

	// Target is one bundle the session builds and rebuilds.
	Target struct {
		// Name is the output name.
		Name string
		// Input is the absolute entry file.
		Input string
		// Outfile is the absolute bundle path.
		Outfile string
		// GlobalName is the IIFE global.
		GlobalName string
		// Tsconfig is the module's type-check configuration, if any.
		Tsconfig string
		// Dir is the module root.
		Dir     string
		Plugins []manifest.PluginRef
		// SuppressThisUndefined hides "this is undefined" warnings.
		SuppressThisUndefined bool
	}

	// Options apply to every target of a session.
	Options struct {
		// OutDir receives <output>.js for every target.
		OutDir string
		// Target is the language level, e.g. "es2015".
		Target    string
		Sourcemap bool
	}

	// Session is a running watch session.
	Session interface {
		// Close stops watching and closes every outstanding result.
		Close() error
	}

	// Engine starts watch sessions.
	Engine interface {
		Watch(ctx context.Context, targets []Target, h Handler) (Session, error)
	}
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindBundleStart:
		return "bundle-start"
	case KindBundleEnd:
		return "bundle-end"
	case KindError:
		return "error"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// TargetsFor converts bundle targets into engine targets in the given
// order.
func TargetsFor(bts []*manifest.BundleTarget, outDir string) []Target {
	out := make([]Target, 0, len(bts))
	for _, bt := range bts {
		m := bt.Module
		t := Target{
			Name:                  bt.Output,
			Input:                 filepath.Join(m.Root, filepath.FromSlash(bt.Input)),
			Outfile:               filepath.Join(outDir, bt.Output+".js"),
			GlobalName:            bt.ExportName,
			Dir:                   m.Root,
			Plugins:               bt.Plugins,
			SuppressThisUndefined: bt.OnWarn != "",
		}
		if m.HasTypeCheckConfig {
			t.Tsconfig = filepath.Join(m.Root, manifest.TypeCheckConfigFile)
		}
		out = append(out, t)
	}
	return out
}
