// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown guides
// for the failures bleep treats as fatal: unreadable manifests, duplicate
// module names, runaway dependency chains and broken configuration.
package issue
