// SPDX-License-Identifier: MPL-2.0

// Package hooks runs the pre and post build commands taken from module
// manifests. Two runtimes exist: native executes the argument list directly
// with os/exec, virtual interprets it with the embedded mvdan/sh shell so
// that hooks behave the same on every platform.
package hooks
