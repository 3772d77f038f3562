// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

// ignoredDirs are never searched for modules.
var ignoredDirs = map[string]bool{
	"@build":       true,
	"@types":       true,
	"node_modules": true,
}

// Walk lazily yields the module directories below root in lexical order.
// Each directory is read only when the consumer asks for the next module.
// A read error is yielded once and ends the walk.
func Walk(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		walkDir(root, true, yield)
	}
}

func walkDir(dir string, isRoot bool, yield func(string, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		yield("", err)
		return false
	}

	if !isRoot && hasManifest(entries) {
		return yield(dir, nil)
	}

	for _, e := range entries {
		if !e.IsDir() || skipDir(e.Name()) {
			continue
		}
		if !walkDir(filepath.Join(dir, e.Name()), false, yield) {
			return false
		}
	}
	return true
}

func hasManifest(entries []os.DirEntry) bool {
	for _, e := range entries {
		if e.Name() == manifest.ManifestFile && e.Type().IsRegular() {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return ignoredDirs[name] || strings.HasPrefix(name, ".")
}
