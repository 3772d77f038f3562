// SPDX-License-Identifier: MPL-2.0

// Package config handles bleep configuration using Viper with CUE as the file format.
//
// Configuration is read from the file given with --config or from bleep.cue at the
// monorepo root; without either, defaults apply. The file is validated against an
// embedded CUE schema (config_schema.cue). Environment variables prefixed with BLEEP_
// override file values, with dots in keys replaced by underscores
// (BLEEP_LOG_COLOR, BLEEP_HOOKS_RUNTIME).
package config
