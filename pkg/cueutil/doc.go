// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE plumbing shared by the configuration loader
// and the manifest reader: compile an embedded schema, unify user input with
// one of its definitions, validate, and report failures with JSON-path style
// locations.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[Config](schema, data, "#Config",
//	    cueutil.WithFilename("bleep.cue"))
//
// JSON input (package.json files) goes through ExtractJSON, which keeps the
// unified cue.Value so callers can walk fields in source order.
package cueutil
