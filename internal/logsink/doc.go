// SPDX-License-Identifier: MPL-2.0

// Package logsink is the single place build output goes through. Every line
// is tagged with the context that produced it (bleep, tsc, the bundler, or a
// module name for hook output), optionally prefixed with a timestamp and the
// process RSS, and colored per context.
package logsink
