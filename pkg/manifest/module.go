// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"slices"
)

const (
	// ManifestFile marks a directory as a module.
	ManifestFile = "package.json"
	// BundlerConfigFile holds the module's bundle targets.
	BundlerConfigFile = "rollup.config.mjs"
	// TypeCheckConfigFile marks the module as a type-check project.
	TypeCheckConfigFile = "tsconfig.json"

	// MainTargetKey is the bundler-config key of a module's primary bundle.
	MainTargetKey = "main"
)

type (
	// Command is one tokenized command line, program first.
	Command []string

	// BuildHooks are the commands found around the type-check and bundle
	// steps of the module's build scripts.
	BuildHooks struct {
		// Pre runs before the module's main bundle is built.
		Pre []Command
		// Post runs after the module's main bundle finished.
		Post []Command
	}

	// PluginRef names a bundler plugin referenced by a target, with the
	// arguments it was called with, if any.
	PluginRef struct {
		Name string
		Args []any
	}

	// BundleTarget is one output bundle declared by a module.
	BundleTarget struct {
		// Module is the owning module.
		Module *Module
		// Key is the target's key in the bundler configuration.
		Key string
		// Input is the entry file, relative to the module root.
		Input string
		// Output is the bundle name; the file is <outDir>/<Output>.js.
		Output string
		// ExportName is the global the bundle exposes. Defaults to Output.
		ExportName string
		// IsMainBuild marks the target whose build triggers the module's hooks.
		IsMainBuild bool
		Plugins     []PluginRef
		// OnWarn names the warning filter the target asked for, if any.
		OnWarn string
	}

	// Module is one directory under the UI root that carries a manifest.
	Module struct {
		// Name is the directory's base name and is unique across the tree.
		Name string
		// Root is the absolute module directory.
		Root string
		// Alias is the output of the main target when it differs from Name.
		Alias string
		// ManifestDependencies lists every dependency key of the manifest, in
		// manifest order.
		ManifestDependencies []string
		// Dependencies keeps the ManifestDependencies that name discovered
		// modules. It is filled when the dependency graph is built.
		Dependencies []string
		Hooks        BuildHooks
		// HasTypeCheckConfig reports whether Root holds tsconfig.json.
		HasTypeCheckConfig bool
		// TypeCheckOptions are the flag names (prefix stripped) of the
		// type-check command in the module's scripts. Nil when the scripts
		// never invoke the type-checker.
		TypeCheckOptions []string
		BundleTargets    []*BundleTarget
	}
)

// DeclaresTypeCheck reports whether the module's scripts invoke the
// type-checker, even without flags.
func (m *Module) DeclaresTypeCheck() bool {
	return m.TypeCheckOptions != nil
}

// AddTypeCheckOption appends opt unless it is already present. Calling it on
// a module that never declared type-check options declares them.
func (m *Module) AddTypeCheckOption(opt string) {
	if slices.Contains(m.TypeCheckOptions, opt) {
		return
	}
	m.TypeCheckOptions = append(m.TypeCheckOptions, opt)
}

// MainTarget returns the target that drives the module's hooks, or nil.
func (m *Module) MainTarget() *BundleTarget {
	for _, t := range m.BundleTargets {
		if t.IsMainBuild {
			return t
		}
	}
	return nil
}

// RefersTo reports whether name is the module's name or its alias.
func (m *Module) RefersTo(name string) bool {
	return name == m.Name || (m.Alias != "" && name == m.Alias)
}

func (c Command) String() string {
	return joinCommand(c)
}
