// SPDX-License-Identifier: MPL-2.0

// Package testutil builds UI trees on disk for tests and records what the
// build pipeline logs.
package testutil
