// SPDX-License-Identifier: MPL-2.0

// Package bundler defines the bundler collaborator: a watch session over
// many bundle targets that reports lifecycle events, and an esbuild-backed
// engine implementing it.
package bundler
