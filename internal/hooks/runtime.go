// SPDX-License-Identifier: MPL-2.0

package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

const (
	// RuntimeNative executes hooks as subprocesses.
	RuntimeNative RuntimeKind = "native"
	// RuntimeVirtual interprets hooks with the embedded shell.
	RuntimeVirtual RuntimeKind = "virtual"
)

// ErrEmptyCommand is returned for a hook with no program.
var ErrEmptyCommand = errors.New("empty hook command")

var assignment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

type (
	// RuntimeKind selects a Runtime.
	RuntimeKind string

	// Runtime runs one hook command in a directory. Output and errors of the
	// command go to out.
	Runtime interface {
		Name() string
		Run(ctx context.Context, dir string, cmd manifest.Command, out io.Writer) error
	}

	// ExitError reports a hook that ran and exited non-zero.
	ExitError struct {
		Command manifest.Command
		Code    int
	}
)

func (e *ExitError) Error() string {
	return fmt.Sprintf("%q exited with status %d", e.Command.String(), e.Code)
}

// Validate reports whether k names a runtime.
func (k RuntimeKind) Validate() error {
	switch k {
	case RuntimeNative, RuntimeVirtual:
		return nil
	default:
		return fmt.Errorf("unknown hook runtime %q", string(k))
	}
}

// New returns the runtime for kind. env is added on top of the process
// environment for every hook.
func New(kind RuntimeKind, env map[string]string) (Runtime, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if kind == RuntimeVirtual {
		return &VirtualRuntime{Env: env}, nil
	}
	return &NativeRuntime{Env: env}, nil
}

// environ returns the process environment followed by extra and the
// command's leading assignments, sorted for stable output.
func environ(extra map[string]string, assigns []string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return append(env, assigns...)
}

// splitAssignments separates leading NAME=value words from the program and
// its arguments.
func splitAssignments(cmd manifest.Command) (assigns []string, argv []string) {
	i := 0
	for i < len(cmd) && assignment.MatchString(cmd[i]) {
		i++
	}
	return cmd[:i], cmd[i:]
}
