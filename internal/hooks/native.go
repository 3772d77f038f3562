// SPDX-License-Identifier: MPL-2.0

package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

// NativeRuntime executes hooks with os/exec. Arguments are passed as they
// are; no shell expansion happens.
type NativeRuntime struct {
	Env map[string]string
}

// Name returns the runtime name.
func (r *NativeRuntime) Name() string {
	return string(RuntimeNative)
}

// Run executes cmd in dir and waits for it.
func (r *NativeRuntime) Run(ctx context.Context, dir string, cmd manifest.Command, out io.Writer) error {
	assigns, argv := splitAssignments(cmd)
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = dir
	c.Env = environ(r.Env, assigns)
	c.Stdout = out
	c.Stderr = out

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return &ExitError{Command: cmd, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("run %q: %w", cmd.String(), err)
	}
	return nil
}
