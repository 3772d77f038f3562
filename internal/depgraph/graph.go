// SPDX-License-Identifier: MPL-2.0

package depgraph

import (
	"fmt"
	"slices"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

// DefaultMaxDepth bounds dependency chains during closure resolution.
const DefaultMaxDepth = 8

type (
	// EdgeMap maps a module name, or a secondary bundle output, to the
	// module names it depends on.
	EdgeMap map[string][]string

	// Graph is the module table plus its dependency edges. It is built once
	// at startup and read afterwards.
	Graph struct {
		modules  []*manifest.Module
		byName   map[string]*manifest.Module
		edges    EdgeMap
		maxDepth int
	}

	// Option configures Build.
	Option func(*Graph)
)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxDepth = n
		}
	}
}

// Build indexes mods by name, fills each module's Dependencies with the
// manifest dependencies that name other discovered modules, and records the
// edge map. Module order is kept as given.
func Build(mods []*manifest.Module, opts ...Option) (*Graph, error) {
	g := &Graph{
		byName:   make(map[string]*manifest.Module, len(mods)),
		edges:    make(EdgeMap),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, m := range mods {
		if prev, ok := g.byName[m.Name]; ok {
			return nil, &DuplicateModuleError{Name: m.Name, Roots: [2]string{prev.Root, m.Root}}
		}
		g.byName[m.Name] = m
		g.modules = append(g.modules, m)
	}

	// Every output a module may write is owned by exactly one module: its
	// name, its alias and each target output.
	owners := make(map[string]string, len(g.modules))
	for _, m := range g.modules {
		owners[m.Name] = m.Name
	}
	claim := func(out, name string) error {
		if owner, ok := owners[out]; ok && owner != name {
			return &DuplicateOutputError{Output: out, Modules: [2]string{owner, name}}
		}
		owners[out] = name
		return nil
	}
	for _, m := range g.modules {
		if m.Alias != "" {
			if err := claim(m.Alias, m.Name); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range g.modules {
		m.Dependencies = slices.DeleteFunc(slices.Clone(m.ManifestDependencies), func(dep string) bool {
			_, ok := g.byName[dep]
			return !ok
		})
		g.edges[m.Name] = slices.Clone(m.Dependencies)

		for _, t := range m.BundleTargets {
			if err := claim(t.Output, m.Name); err != nil {
				return nil, err
			}
		}
	}

	// Secondary outputs inherit the host's weight plus one.
	for _, m := range g.modules {
		for _, t := range m.BundleTargets {
			if !m.RefersTo(t.Output) {
				g.edges[t.Output] = append([]string{m.Name}, m.Dependencies...)
			}
		}
	}

	return g, nil
}

// Modules returns the modules in discovery order.
func (g *Graph) Modules() []*manifest.Module {
	return slices.Clone(g.modules)
}

// Module looks a module up by name.
func (g *Graph) Module(name string) (*manifest.Module, bool) {
	m, ok := g.byName[name]
	return m, ok
}

// Edges returns a copy of the edge map.
func (g *Graph) Edges() EdgeMap {
	out := make(EdgeMap, len(g.edges))
	for k, v := range g.edges {
		out[k] = slices.Clone(v)
	}
	return out
}

// MaxDepth returns the closure depth limit.
func (g *Graph) MaxDepth() int {
	return g.maxDepth
}

// Weight is the number of direct dependencies recorded for the target's
// output, falling back to its module's.
func (g *Graph) Weight(t *manifest.BundleTarget) int {
	if deps, ok := g.edges[t.Output]; ok {
		return len(deps)
	}
	return len(g.edges[t.Module.Name])
}

// BundleOrder returns the targets of mods sorted by ascending Weight. Ties
// keep module order, then declaration order.
func (g *Graph) BundleOrder(mods []*manifest.Module) []*manifest.BundleTarget {
	var targets []*manifest.BundleTarget
	for _, m := range mods {
		targets = append(targets, m.BundleTargets...)
	}
	slices.SortStableFunc(targets, func(a, b *manifest.BundleTarget) int {
		return g.Weight(a) - g.Weight(b)
	})
	return targets
}

// Closure returns the named modules together with everything they depend
// on, dependencies before dependents. Without names it covers every module.
func (g *Graph) Closure(names ...string) ([]*manifest.Module, error) {
	if len(names) == 0 {
		for _, m := range g.modules {
			names = append(names, m.Name)
		}
	}

	c := &closure{graph: g, done: make(map[string]bool)}
	for _, name := range names {
		if _, ok := g.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
		}
		if err := c.collect(name, nil); err != nil {
			return nil, err
		}
	}
	return c.out, nil
}

// Validate walks the closure of every module and reports the first chain
// deeper than the limit.
func (g *Graph) Validate() error {
	for _, m := range g.modules {
		if _, err := g.Closure(m.Name); err != nil {
			return err
		}
	}
	return nil
}

type closure struct {
	graph *Graph
	done  map[string]bool
	out   []*manifest.Module
}

func (c *closure) collect(name string, chain []string) error {
	chain = append(chain, name)
	if len(chain)-1 > c.graph.maxDepth {
		return &DepthError{Limit: c.graph.maxDepth, Chain: slices.Clone(chain)}
	}
	if c.done[name] {
		return nil
	}
	for _, dep := range c.graph.edges[name] {
		if err := c.collect(dep, chain); err != nil {
			return err
		}
	}
	if !c.done[name] {
		c.done[name] = true
		c.out = append(c.out, c.graph.byName[name])
	}
	return nil
}
