// SPDX-License-Identifier: MPL-2.0

package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bleepbuild/bleep/pkg/manifest"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    RuntimeKind
		want    string
		wantErr bool
	}{
		{RuntimeNative, "native", false},
		{RuntimeVirtual, "virtual", false},
		{"docker", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			rt, err := New(tt.kind, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if rt.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", rt.Name(), tt.want)
			}
		})
	}
}

func TestSplitAssignments(t *testing.T) {
	t.Parallel()

	assigns, argv := splitAssignments(manifest.Command{"NODE_ENV=production", "A=", "node", "X=1"})
	if len(assigns) != 2 || assigns[0] != "NODE_ENV=production" || assigns[1] != "A=" {
		t.Errorf("assigns = %v", assigns)
	}
	if len(argv) != 2 || argv[0] != "node" || argv[1] != "X=1" {
		t.Errorf("argv = %v", argv)
	}
}

func TestVirtualRuntime_Run(t *testing.T) {
	t.Parallel()

	rt := &VirtualRuntime{Env: map[string]string{"GREETING": "hello"}}
	var out bytes.Buffer
	err := rt.Run(context.Background(), t.TempDir(), manifest.Command{"echo", "a b", "$GREETING"}, &out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := out.String(); got != "a b $GREETING\n" {
		t.Errorf("output = %q, want arguments passed literally", got)
	}
}

func TestVirtualRuntime_ExitStatus(t *testing.T) {
	t.Parallel()

	rt := &VirtualRuntime{}
	err := rt.Run(context.Background(), t.TempDir(), manifest.Command{"false"}, &bytes.Buffer{})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 1 {
		t.Errorf("Code = %d, want 1", exitErr.Code)
	}
}

func TestRuntimes_EmptyCommand(t *testing.T) {
	t.Parallel()

	for _, rt := range []Runtime{&NativeRuntime{}, &VirtualRuntime{}} {
		err := rt.Run(context.Background(), t.TempDir(), manifest.Command{"A=1"}, &bytes.Buffer{})
		if !errors.Is(err, ErrEmptyCommand) {
			t.Errorf("%s: Run() error = %v, want ErrEmptyCommand", rt.Name(), err)
		}
	}
}

func TestNativeRuntime_Run(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	dir := t.TempDir()
	rt := &NativeRuntime{Env: map[string]string{"FROM_FILE": "file"}}
	var out bytes.Buffer
	cmd := manifest.Command{"INLINE=inline", "sh", "-c", "echo $FROM_FILE $INLINE; pwd"}
	if err := rt.Run(context.Background(), dir, cmd, &out); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	wantDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := "file inline\n" + wantDir + "\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestNativeRuntime_ExitStatus(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	rt := &NativeRuntime{}
	err := rt.Run(context.Background(), t.TempDir(), manifest.Command{"sh", "-c", "exit 3"}, &bytes.Buffer{})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("Code = %d, want 3", exitErr.Code)
	}
}

func TestNativeRuntime_MissingProgram(t *testing.T) {
	t.Parallel()

	rt := &NativeRuntime{}
	err := rt.Run(context.Background(), t.TempDir(), manifest.Command{"bleep-no-such-program"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("Run() expected error")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Errorf("Run() error = %v, a missing program is not an exit status", err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("A=1\nB=from-env\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("B=local\n# comment\nC=\"quoted value\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	env, err := LoadEnvFiles(dir, []string{".env", ".env.local", ".env.missing?"})
	if err != nil {
		t.Fatalf("LoadEnvFiles() error: %v", err)
	}
	want := map[string]string{"A": "1", "B": "local", "C": "quoted value"}
	if len(env) != len(want) {
		t.Errorf("env = %v, want %v", env, want)
	}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("env[%q] = %q, want %q", k, env[k], v)
		}
	}
}

func TestLoadEnvFiles_MissingRequired(t *testing.T) {
	t.Parallel()

	if _, err := LoadEnvFiles(t.TempDir(), []string{".env"}); err == nil {
		t.Fatal("LoadEnvFiles() expected error for a missing required file")
	}
}

func TestForModules(t *testing.T) {
	t.Parallel()

	rt, err := ForModules(RuntimeVirtual, nil)
	if err != nil {
		t.Fatalf("ForModules() error: %v", err)
	}
	if _, ok := rt.(*VirtualRuntime); !ok {
		t.Errorf("ForModules() without files = %T, want *VirtualRuntime", rt)
	}

	rt, err = ForModules(RuntimeNative, []string{".env"})
	if err != nil {
		t.Fatalf("ForModules() error: %v", err)
	}
	if rt.Name() != "native" {
		t.Errorf("Name() = %q", rt.Name())
	}

	if _, err := ForModules("remote", nil); err == nil {
		t.Error("ForModules() expected error for unknown runtime")
	}
}

func TestEnvFileRuntime_PerModule(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	rt := &EnvFileRuntime{Kind: RuntimeNative, Files: []string{".env"}}
	for _, name := range []string{"site", "admin"} {
		dir := filepath.Join(t.TempDir(), name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MODULE="+name+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		var out bytes.Buffer
		if err := rt.Run(context.Background(), dir, manifest.Command{"sh", "-c", "echo $MODULE"}, &out); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if got := out.String(); got != name+"\n" {
			t.Errorf("output = %q, want %q", got, name+"\n")
		}
	}
}

func TestEnvFileRuntime_MissingFile(t *testing.T) {
	t.Parallel()

	rt := &EnvFileRuntime{Kind: RuntimeVirtual, Files: []string{".env"}}
	err := rt.Run(context.Background(), t.TempDir(), manifest.Command{"true"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("Run() expected error for a missing env file")
	}
}
