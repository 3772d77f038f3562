// SPDX-License-Identifier: MPL-2.0

package tsproject

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/ohler55/ojg/sen"

	"github.com/bleepbuild/bleep/internal/depgraph"
	"github.com/bleepbuild/bleep/internal/issue"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

const (
	// DescriptorSuffix is appended to a module name to form its descriptor
	// file name.
	DescriptorSuffix = ".tsconfig.json"
	// AggregateFile is the descriptor referencing every type-checked module.
	// Module names never start with a dot, so it cannot collide.
	AggregateFile = ".bleep.tsconfig.json"

	compositeOption = "composite"
)

// pathKeys hold paths relative to the template's directory.
var pathKeys = map[string]bool{
	"include":         true,
	"exclude":         true,
	"files":           true,
	"outDir":          true,
	"rootDir":         true,
	"declarationDir":  true,
	"tsBuildInfoFile": true,
	"typeRoots":       true,
	"src":             true,
	"baseUrl":         true,
	"extends":         true,
	"path":            true,
}

type (
	// Composer writes descriptors into Dir.
	Composer struct {
		Dir string
	}

	// Result lists what Compose wrote.
	Result struct {
		// Aggregate is the absolute path of the aggregate descriptor.
		Aggregate string
		// Descriptors maps module name to descriptor path.
		Descriptors map[string]string
		// Referenced are the modules the aggregate points at, in graph order.
		Referenced []string
	}
)

// PropagateComposite marks every type-checked dependency of a module as a
// composite project, which project references require. Applying it twice
// changes nothing.
func PropagateComposite(g *depgraph.Graph) {
	for _, m := range g.Modules() {
		for _, name := range m.Dependencies {
			if dep, ok := g.Module(name); ok && dep.DeclaresTypeCheck() {
				dep.AddTypeCheckOption(compositeOption)
			}
		}
	}
}

// Compose wipes Dir and regenerates every descriptor from the modules'
// templates. Modules without a tsconfig.json get no descriptor.
func (c *Composer) Compose(g *depgraph.Graph) (*Result, error) {
	PropagateComposite(g)

	if err := os.RemoveAll(c.Dir); err != nil {
		return nil, c.writeFailure(c.Dir, err)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, c.writeFailure(c.Dir, err)
	}

	res := &Result{
		Aggregate:   filepath.Join(c.Dir, AggregateFile),
		Descriptors: make(map[string]string),
	}

	for _, m := range g.Modules() {
		if !m.HasTypeCheckConfig {
			continue
		}
		desc, err := Describe(m, withConfig(g))
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("read type-check template").
				WithResource(filepath.Join(m.Root, manifest.TypeCheckConfigFile)).
				WithIssue(issue.DescriptorWriteFailedId).
				Wrap(err).
				BuildError()
		}
		path := filepath.Join(c.Dir, m.Name+DescriptorSuffix)
		if err := writeJSON(path, desc); err != nil {
			return nil, c.writeFailure(path, err)
		}
		res.Descriptors[m.Name] = path
		if m.DeclaresTypeCheck() {
			res.Referenced = append(res.Referenced, m.Name)
		}
	}

	refs := make([]any, 0, len(res.Referenced))
	for _, name := range res.Referenced {
		refs = append(refs, map[string]any{"path": name + DescriptorSuffix})
	}
	aggregate := map[string]any{
		"files":           []any{},
		"compilerOptions": map[string]any{},
		"references":      refs,
	}
	if err := writeJSON(res.Aggregate, aggregate); err != nil {
		return nil, c.writeFailure(res.Aggregate, err)
	}
	return res, nil
}

// Describe loads m's tsconfig.json and rewrites it for use from the
// descriptor directory. When m declares type-check options, dependencies
// accepted by hasDescriptor become project references.
func Describe(m *manifest.Module, hasDescriptor func(string) bool) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(m.Root, manifest.TypeCheckConfigFile))
	if err != nil {
		return nil, err
	}
	parsed, err := sen.Parse(data)
	if err != nil {
		return nil, err
	}
	cfg, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top level is %T, not an object", parsed)
	}

	resolveObject(m.Root, cfg, false)

	src := filepath.Join(m.Root, "src")
	if _, ok := cfg["include"]; !ok {
		cfg["include"] = []any{src}
	}
	opts, ok := cfg["compilerOptions"].(map[string]any)
	if !ok {
		opts = map[string]any{}
		cfg["compilerOptions"] = opts
	}
	opts["rootDir"] = src
	for _, name := range m.TypeCheckOptions {
		opts[name] = true
	}

	if m.DeclaresTypeCheck() {
		var refs []any
		for _, dep := range m.Dependencies {
			if hasDescriptor(dep) {
				refs = append(refs, map[string]any{"path": dep + DescriptorSuffix})
			}
		}
		if len(refs) > 0 {
			cfg["references"] = refs
		}
	}
	return cfg, nil
}

func withConfig(g *depgraph.Graph) func(string) bool {
	return func(name string) bool {
		m, ok := g.Module(name)
		return ok && m.HasTypeCheckConfig
	}
}

// resolveObject makes the path-bearing values of obj absolute against
// root. Under "paths" every value is a path whatever its key.
func resolveObject(root string, obj map[string]any, all bool) {
	for key, v := range obj {
		obj[key] = resolveValue(root, key, v, all || pathKeys[key])
	}
	if paths, ok := obj["paths"].(map[string]any); ok {
		resolveObject(root, paths, true)
	}
}

func resolveValue(root, key string, v any, isPath bool) any {
	switch x := v.(type) {
	case string:
		if isPath {
			return resolvePath(root, key, x)
		}
	case []any:
		for i, el := range x {
			x[i] = resolveValue(root, key, el, isPath)
		}
	case map[string]any:
		if key != "paths" {
			resolveObject(root, x, isPath)
		}
	}
	return v
}

func resolvePath(root, key, p string) string {
	// "extends" may name a package rather than a file.
	if key == "extends" && !strings.HasPrefix(p, ".") && !filepath.IsAbs(p) {
		return p
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func writeJSON(path string, v any) error {
	out := oj.JSON(v, &ojg.Options{Indent: 2, Sort: true})
	return os.WriteFile(path, []byte(out+"\n"), 0o644)
}

func (c *Composer) writeFailure(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("write type-check descriptor").
		WithResource(path).
		WithIssue(issue.DescriptorWriteFailedId).
		WithSuggestion("Check that descriptor_dir is writable").
		Wrap(err).
		BuildError()
}
