// SPDX-License-Identifier: MPL-2.0

package typecheck

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bleepbuild/bleep/internal/issue"
)

const (
	// DefaultCommand is the type-checker binary.
	DefaultCommand = "tsc"
	// DefaultMarker is the line tsc prints after a build without errors.
	DefaultMarker = "Found 0 errors."

	stopGrace = 5 * time.Second
)

// ErrExitedEarly is returned when the type-checker exits before it reported
// a clean initial build.
var ErrExitedEarly = errors.New("type-checker exited before its first clean build")

type (
	// Options configure the watch process.
	Options struct {
		// Command is the program and any leading arguments, separated by
		// spaces, e.g. "tsc" or "pnpm exec tsc".
		Command string
		// Aggregate is the path of the aggregate project descriptor.
		Aggregate string
		// Dir is the working directory.
		Dir string
		// Marker is the success line. Defaults to DefaultMarker.
		Marker string
		// Output receives every line the process prints.
		Output io.Writer
	}

	// Process is a running type-checker.
	Process struct {
		cmd    *exec.Cmd
		cancel context.CancelFunc

		ready     chan struct{}
		readyOnce sync.Once
		done      chan struct{}
		err       error
	}
)

// IsInitialBuildComplete reports whether line is the type-checker's success
// marker.
func IsInitialBuildComplete(line, marker string) bool {
	if marker == "" {
		marker = DefaultMarker
	}
	return strings.Contains(line, marker)
}

// Args returns the type-checker arguments for the aggregate descriptor.
func Args(aggregate string) []string {
	return []string{"-b", aggregate, "--incremental", "-w", "--preserveWatchOutput"}
}

// Start launches the type-checker. It returns once the process runs; use
// Ready to wait for the first clean build.
func Start(ctx context.Context, opts Options) (*Process, error) {
	argv := strings.Fields(opts.Command)
	if len(argv) == 0 {
		argv = []string{DefaultCommand}
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("start type-checker").
			WithResource(argv[0]).
			WithSuggestion("Install the project dependencies or set typecheck.command").
			WithIssue(issue.TypeCheckerNotFoundId).
			Wrap(err).
			BuildError()
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, path, append(argv[1:], Args(opts.Aggregate)...)...)
	cmd.Dir = opts.Dir
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = stopGrace

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	p := &Process{
		cmd:    cmd,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		p.scan(pr, opts.Marker, opts.Output)
	}()

	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		<-scanned
		p.err = err
		close(p.done)
	}()

	return p, nil
}

func (p *Process) scan(r io.Reader, marker string, out io.Writer) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		_, _ = io.WriteString(out, line+"\n")
		if IsInitialBuildComplete(line, marker) {
			p.readyOnce.Do(func() { close(p.ready) })
		}
	}
	// Keep the process from blocking on a full pipe after a scan error.
	_, _ = io.Copy(io.Discard, r)
}

// Ready is closed when the first clean build was reported.
func (p *Process) Ready() <-chan struct{} {
	return p.ready
}

// Done is closed when the process exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Stop interrupts the process and waits for it to exit.
func (p *Process) Stop() {
	p.cancel()
	<-p.done
}

// WaitReady blocks until the first clean build, the process exits, or ctx
// ends.
func (p *Process) WaitReady(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-p.done:
		// The marker may race the exit.
		select {
		case <-p.ready:
			return nil
		default:
		}
		cause := ErrExitedEarly
		if p.err != nil {
			cause = fmt.Errorf("%w: %w", ErrExitedEarly, p.err)
		}
		return issue.NewErrorContext().
			WithOperation("wait for the initial type-check").
			WithSuggestion("Fix the errors printed by the type-checker and restart").
			WithIssue(issue.TypeCheckerExitedId).
			Wrap(cause).
			BuildError()
	case <-ctx.Done():
		return ctx.Err()
	}
}
