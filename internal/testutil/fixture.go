// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type (
	// Script is one manifest script entry. A slice of them keeps order.
	Script struct {
		Key   string
		Value string
	}

	// ModuleFixture describes a module directory to create.
	ModuleFixture struct {
		// Dir is the path below the UI root; defaults to Name.
		Dir          string
		Name         string
		Scripts      []Script
		Dependencies []string
		// BundlerConfig is written to rollup.config.mjs when non-empty.
		BundlerConfig string
		// TypeCheckConfig is written to tsconfig.json when non-empty.
		TypeCheckConfig string
		// Files are extra files keyed by path relative to the module.
		Files map[string]string
	}
)

// WriteModule creates the module under uiDir and returns its directory.
func WriteModule(t testing.TB, uiDir string, f ModuleFixture) string {
	t.Helper()

	rel := f.Dir
	if rel == "" {
		rel = f.Name
	}
	dir := filepath.Join(uiDir, rel)

	MustWriteFile(t, filepath.Join(dir, "package.json"), ManifestJSON(f.Name, f.Scripts, f.Dependencies))
	if f.BundlerConfig != "" {
		MustWriteFile(t, filepath.Join(dir, "rollup.config.mjs"), f.BundlerConfig)
	}
	if f.TypeCheckConfig != "" {
		MustWriteFile(t, filepath.Join(dir, "tsconfig.json"), f.TypeCheckConfig)
	}
	for name, content := range f.Files {
		MustWriteFile(t, filepath.Join(dir, name), content)
	}
	return dir
}

// ManifestJSON renders a package.json whose scripts and dependencies keep
// the given order.
func ManifestJSON(name string, scripts []Script, deps []string) string {
	var b strings.Builder
	b.WriteString("{\n  \"name\": " + strconv.Quote(name) + ",\n  \"private\": true")

	b.WriteString(",\n  \"scripts\": {")
	for i, s := range scripts {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n    " + strconv.Quote(s.Key) + ": " + strconv.Quote(s.Value))
	}
	b.WriteString("\n  }")

	b.WriteString(",\n  \"dependencies\": {")
	for i, d := range deps {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n    " + strconv.Quote(d) + ": \"workspace:*\"")
	}
	b.WriteString("\n  }\n}\n")
	return b.String()
}
