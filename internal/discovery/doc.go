// SPDX-License-Identifier: MPL-2.0

// Package discovery finds the UI modules below a root directory and parses
// each one into a manifest.Module.
//
// A module is the shallowest directory holding a package.json; its
// subdirectories are not searched further. The root itself is never a
// module, and tooling directories (@build, @types, node_modules, dot
// directories) are skipped.
//
// File organization:
//   - walk.go: the lazy directory walk
//   - discovery.go: Discover, exclusion and error classification
//   - diagnostic.go: non-fatal findings returned to the CLI
package discovery
