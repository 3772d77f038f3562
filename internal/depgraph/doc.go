// SPDX-License-Identifier: MPL-2.0

// Package depgraph holds the module table of one build: every discovered
// module by name, the dependency edges between them, and the orderings the
// pipeline needs (bundle start order, dependency closures, topological
// layers).
//
// Edges come from manifest dependencies filtered to modules that exist in
// the tree. Secondary bundle outputs are registered as pseudo-nodes that
// depend on their host module and its dependencies, so they sort after it.
package depgraph
