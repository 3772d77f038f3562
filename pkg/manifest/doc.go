// SPDX-License-Identifier: MPL-2.0

// Package manifest turns one UI module directory into a Module: its name,
// declared dependencies, build hooks, type-check options and bundle targets.
//
// Three files are read from the directory. package.json supplies the
// dependencies and the build scripts ("deps", "compile" and "dev", taken in
// the order the manifest lists them). rollup.config.mjs, when present,
// supplies the bundle targets. The presence of tsconfig.json marks the
// module as a type-check project.
package manifest
