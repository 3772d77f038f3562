// SPDX-License-Identifier: MPL-2.0

package typecheck

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bleepbuild/bleep/internal/issue"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestIsInitialBuildComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		marker string
		want   bool
	}{
		{"10:01:02 AM - Found 0 errors. Watching for file changes.", "", true},
		{"Found 0 errors.", DefaultMarker, true},
		{"10:01:02 AM - Found 3 errors. Watching for file changes.", "", false},
		{"Starting compilation in watch mode...", "", false},
		{"build ok", "build ok", true},
	}

	for _, tt := range tests {
		if got := IsInitialBuildComplete(tt.line, tt.marker); got != tt.want {
			t.Errorf("IsInitialBuildComplete(%q, %q) = %v, want %v", tt.line, tt.marker, got, tt.want)
		}
	}
}

func TestArgs(t *testing.T) {
	t.Parallel()

	got := strings.Join(Args("/d/.bleep.tsconfig.json"), " ")
	want := "-b /d/.bleep.tsconfig.json --incremental -w --preserveWatchOutput"
	if got != want {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

// fakeChecker writes a shell script standing in for tsc and returns the
// command that runs it.
func fakeChecker(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	path := filepath.Join(t.TempDir(), "tsc.sh")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return "sh " + path
}

func TestStart_ReadyOnMarker(t *testing.T) {
	t.Parallel()

	cmd := fakeChecker(t, `echo "args: $*"
echo "Starting compilation in watch mode..."
echo "Found 0 errors. Watching for file changes."
exec sleep 30
`)
	out := &syncBuffer{}
	p, err := Start(context.Background(), Options{Command: cmd, Aggregate: "agg.json", Output: out})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error: %v", err)
	}
	if !strings.Contains(out.String(), "args: -b agg.json --incremental -w --preserveWatchOutput") {
		t.Errorf("output = %q, want the watch arguments", out.String())
	}

	p.Stop()
	select {
	case <-p.Done():
	default:
		t.Error("Done() not closed after Stop()")
	}
}

func TestStart_ExitBeforeMarker(t *testing.T) {
	t.Parallel()

	cmd := fakeChecker(t, `echo "src/a.ts(1,1): error TS1005"
exit 2
`)
	p, err := Start(context.Background(), Options{Command: cmd, Output: &syncBuffer{}})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = p.WaitReady(ctx)
	if !errors.Is(err, ErrExitedEarly) {
		t.Fatalf("WaitReady() error = %v, want ErrExitedEarly", err)
	}
	if id, ok := issue.IssueOf(err); !ok || id != issue.TypeCheckerExitedId {
		t.Errorf("IssueOf() = %v, %v, want TypeCheckerExitedId", id, ok)
	}
}

func TestStart_CommandNotFound(t *testing.T) {
	t.Parallel()

	_, err := Start(context.Background(), Options{Command: "bleep-no-such-tsc"})
	if id, ok := issue.IssueOf(err); !ok || id != issue.TypeCheckerNotFoundId {
		t.Errorf("Start() error = %v, want TypeCheckerNotFoundId", err)
	}
}
