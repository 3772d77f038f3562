// SPDX-License-Identifier: MPL-2.0

package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

// LoadEnvFiles reads dotenv files relative to base and merges them, later
// files winning. A trailing '?' marks a file as optional.
func LoadEnvFiles(base string, files []string) (map[string]string, error) {
	env := make(map[string]string)
	for _, f := range files {
		path, optional := strings.CutSuffix(f, "?")
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, filepath.FromSlash(path))
		}

		vars, err := godotenv.Read(path)
		if err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read env file %q: %w", f, err)
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	return env, nil
}

// EnvFileRuntime reads Files relative to the hook directory before each run
// and passes the result to a runtime of Kind, so every module gets its own
// dotenv values.
type EnvFileRuntime struct {
	Kind  RuntimeKind
	Files []string
}

// ForModules returns the runtime for kind, reading files per module when
// any are configured.
func ForModules(kind RuntimeKind, files []string) (Runtime, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return New(kind, nil)
	}
	return &EnvFileRuntime{Kind: kind, Files: files}, nil
}

// Name returns the name of the underlying runtime.
func (r *EnvFileRuntime) Name() string {
	return string(r.Kind)
}

// Run loads the env files of dir and runs cmd with them.
func (r *EnvFileRuntime) Run(ctx context.Context, dir string, cmd manifest.Command, out io.Writer) error {
	env, err := LoadEnvFiles(dir, r.Files)
	if err != nil {
		return err
	}
	rt, err := New(r.Kind, env)
	if err != nil {
		return err
	}
	return rt.Run(ctx, dir, cmd, out)
}
