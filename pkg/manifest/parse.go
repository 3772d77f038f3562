// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"

	"github.com/bleepbuild/bleep/pkg/bundlecfg"
	"github.com/bleepbuild/bleep/pkg/cueutil"
)

const (
	// PolicyConfigFile reads bundle targets from the bundler config only.
	PolicyConfigFile BundlePolicy = "config-file"
	// PolicyConvention falls back to a main target built from a
	// conventional entry file when no bundler config exists.
	PolicyConvention BundlePolicy = "convention"

	// DefaultProjectHelper is the helper whose argument holds the targets.
	DefaultProjectHelper = "rollupProject"
)

// ErrParse marks any failure to turn a directory into a Module.
var ErrParse = errors.New("invalid module")

//go:embed manifest_schema.cue
var manifestSchema []byte

type (
	// BundlePolicy decides where bundle targets come from.
	BundlePolicy string

	// Options tunes Parse. The zero value reads bundler configs only.
	Options struct {
		Policy BundlePolicy
		// ConventionEntry is the entry file, relative to the module root,
		// used by PolicyConvention.
		ConventionEntry string
		// ProjectHelper overrides DefaultProjectHelper.
		ProjectHelper string
	}

	// ParseError wraps a failure with the file it came from.
	ParseError struct {
		Path string
		Err  error
	}
)

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Validate reports whether p is a known policy.
func (p BundlePolicy) Validate() error {
	switch p {
	case PolicyConfigFile, PolicyConvention, "":
		return nil
	default:
		return fmt.Errorf("unknown bundle policy %q", string(p))
	}
}

// Parse reads the module rooted at dir.
func Parse(dir string, opts Options) (*Module, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, &ParseError{Path: dir, Err: err}
	}
	m := &Module{Name: filepath.Base(root), Root: root}

	manifestPath := filepath.Join(root, ManifestFile)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ParseError{Path: manifestPath, Err: err}
	}
	scripts, deps, err := decodeManifest(data, manifestPath)
	if err != nil {
		return nil, &ParseError{Path: manifestPath, Err: err}
	}
	m.ManifestDependencies = deps
	if err := applyScripts(m, scripts); err != nil {
		return nil, &ParseError{Path: manifestPath, Err: err}
	}

	m.HasTypeCheckConfig = fileExists(filepath.Join(root, TypeCheckConfigFile))

	configPath := filepath.Join(root, BundlerConfigFile)
	switch src, err := os.ReadFile(configPath); {
	case err == nil:
		helper := opts.ProjectHelper
		if helper == "" {
			helper = DefaultProjectHelper
		}
		if err := parseTargets(m, src, helper); err != nil {
			return nil, &ParseError{Path: configPath, Err: err}
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, &ParseError{Path: configPath, Err: err}
	case opts.Policy == PolicyConvention && opts.ConventionEntry != "":
		if fileExists(filepath.Join(root, opts.ConventionEntry)) {
			m.BundleTargets = []*BundleTarget{{
				Module:      m,
				Key:         MainTargetKey,
				Input:       opts.ConventionEntry,
				Output:      m.Name,
				ExportName:  m.Name,
				IsMainBuild: true,
			}}
		}
	}

	return m, nil
}

func decodeManifest(data []byte, path string) ([]script, []string, error) {
	v, err := cueutil.ExtractJSON(manifestSchema, data, "#Manifest", cueutil.WithFilename(path))
	if err != nil {
		return nil, nil, err
	}

	var scripts []script
	err = eachField(v.LookupPath(cue.ParsePath("scripts")), func(key string, val cue.Value) error {
		s, err := val.String()
		if err != nil {
			return err
		}
		scripts = append(scripts, script{key: key, value: s})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var deps []string
	err = eachField(v.LookupPath(cue.ParsePath("dependencies")), func(key string, _ cue.Value) error {
		deps = append(deps, key)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return scripts, deps, nil
}

// eachField visits the regular fields of v in source order. A missing v is
// an empty struct.
func eachField(v cue.Value, fn func(string, cue.Value) error) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return err
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func parseTargets(m *Module, src []byte, helper string) error {
	obj, err := bundlecfg.Extract(src, helper)
	if err != nil {
		return err
	}

	for _, key := range targetKeys(obj) {
		entry, ok := obj[key].(map[string]any)
		if !ok {
			return fmt.Errorf("target %q is not an object", key)
		}
		input, _ := entry["input"].(string)
		output, _ := entry["output"].(string)
		if input == "" || output == "" {
			return fmt.Errorf("target %q needs string input and output", key)
		}

		if key == MainTargetKey && output != m.Name {
			m.Alias = output
		}
		t := &BundleTarget{
			Module:      m,
			Key:         key,
			Input:       input,
			Output:      output,
			ExportName:  output,
			IsMainBuild: key == MainTargetKey || output == m.Name,
		}
		if name, ok := entry["name"].(string); ok && name != "" {
			t.ExportName = name
		}
		if onwarn, ok := entry["onwarn"].(string); ok {
			t.OnWarn = onwarn
		} else if call, ok := bundlecfg.AsCall(entry["onwarn"]); ok {
			t.OnWarn = call.Name
		}
		plugins, _ := entry["plugins"].([]any)
		for _, p := range plugins {
			if call, ok := bundlecfg.AsCall(p); ok {
				t.Plugins = append(t.Plugins, PluginRef{Name: call.Name, Args: call.Args})
			} else if name, ok := p.(string); ok {
				t.Plugins = append(t.Plugins, PluginRef{Name: name})
			}
		}
		m.BundleTargets = append(m.BundleTargets, t)
	}
	return nil
}

// targetKeys orders the main target first, then the rest by key.
func targetKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k != MainTargetKey {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if _, ok := obj[MainTargetKey]; ok {
		keys = append([]string{MainTargetKey}, keys...)
	}
	return keys
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
