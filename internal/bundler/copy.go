// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

// CopyPluginName is the only module plugin the engine runs itself.
const CopyPluginName = "copy"

var errCopyArgs = errors.New("copy plugin expects {targets: [{src, dest}]}")

// CopyRule copies files matching Src into the Dest directory. Both are
// relative to the module root.
type CopyRule struct {
	Src  string
	Dest string
}

// CopyRules reads the rules of a copy plugin reference.
func CopyRules(ref manifest.PluginRef) ([]CopyRule, error) {
	if len(ref.Args) != 1 {
		return nil, errCopyArgs
	}
	opts, ok := ref.Args[0].(map[string]any)
	if !ok {
		return nil, errCopyArgs
	}
	targets, ok := opts["targets"].([]any)
	if !ok {
		return nil, errCopyArgs
	}

	rules := make([]CopyRule, 0, len(targets))
	for _, t := range targets {
		tm, ok := t.(map[string]any)
		if !ok {
			return nil, errCopyArgs
		}
		src, _ := tm["src"].(string)
		dest, _ := tm["dest"].(string)
		if src == "" || dest == "" {
			return nil, errCopyArgs
		}
		rules = append(rules, CopyRule{Src: src, Dest: dest})
	}
	return rules, nil
}

// Apply copies every file matched by the rule and returns how many were
// copied.
func (r CopyRule) Apply(root string) (int, error) {
	pattern := filepath.Join(root, filepath.FromSlash(r.Src))
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, fmt.Errorf("glob %q: %w", r.Src, err)
	}

	dest := filepath.Join(root, filepath.FromSlash(r.Dest))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, err
	}
	for _, src := range matches {
		if err := copyFile(src, filepath.Join(dest, filepath.Base(src))); err != nil {
			return 0, err
		}
	}
	return len(matches), nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
