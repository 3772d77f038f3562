// SPDX-License-Identifier: MPL-2.0

package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

// VirtualRuntime interprets hooks with mvdan/sh. Every argument is quoted
// before interpretation, so words reach the program exactly as tokenized.
type VirtualRuntime struct {
	Env map[string]string
}

// Name returns the runtime name.
func (r *VirtualRuntime) Name() string {
	return string(RuntimeVirtual)
}

// Run interprets cmd in dir.
func (r *VirtualRuntime) Run(ctx context.Context, dir string, cmd manifest.Command, out io.Writer) error {
	assigns, argv := splitAssignments(cmd)
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	words := make([]string, len(argv))
	for i, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return fmt.Errorf("quote %q: %w", arg, err)
		}
		words[i] = q
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(strings.Join(words, " ")), "hook")
	if err != nil {
		return fmt.Errorf("parse %q: %w", cmd.String(), err)
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(environ(r.Env, assigns)...)),
		interp.StdIO(nil, out, out),
	)
	if err != nil {
		return fmt.Errorf("create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Command: cmd, Code: int(status)}
		}
		return fmt.Errorf("run %q: %w", cmd.String(), err)
	}
	return nil
}
