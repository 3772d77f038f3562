// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bleep command tree.
//
// The watch command is the main entry point: it discovers the modules under
// the UI root, writes the type-check descriptors, then keeps the
// type-checker and the bundler running until interrupted. The remaining
// commands inspect the same workspace without starting any process.
package cmd
