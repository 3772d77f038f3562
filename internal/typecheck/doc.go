// SPDX-License-Identifier: MPL-2.0

// Package typecheck runs the type-checker in watch mode against the
// aggregate project and reports when its first clean build completed.
//
// The type-checker offers no structured status channel, so completion is
// detected by scanning its output for a success marker. That check lives in
// IsInitialBuildComplete and nowhere else.
package typecheck
