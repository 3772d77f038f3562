// SPDX-License-Identifier: MPL-2.0

// Package pipeline drives the watch pipeline: it starts the type-checker,
// waits for its first clean build, then runs one bundler watch session over
// the selected modules and reacts to its events with the modules' build
// hooks.
//
// Events are handled one at a time. Pre hooks run inside the bundle-start
// handler and block the build they precede; post hooks run in the
// background and never hold up later events.
package pipeline
