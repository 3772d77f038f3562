// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bleepbuild/bleep/internal/hooks"
	"github.com/bleepbuild/bleep/internal/issue"
	"github.com/bleepbuild/bleep/internal/testutil"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

func load(t *testing.T, opts LoadOptions) (*Config, error) {
	t.Helper()
	return NewProvider().Load(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.UIDir != "ui" || cfg.OutDir != "public/compiled" {
		t.Errorf("dirs = %q, %q", cfg.UIDir, cfg.OutDir)
	}
	if cfg.DescriptorDir != "ui/@build/bleep/.tsconfig" {
		t.Errorf("DescriptorDir = %q", cfg.DescriptorDir)
	}
	if cfg.BundlePolicy != manifest.PolicyConfigFile {
		t.Errorf("BundlePolicy = %q, want config-file", cfg.BundlePolicy)
	}
	if cfg.MaxDependencyDepth != 8 {
		t.Errorf("MaxDependencyDepth = %d, want 8", cfg.MaxDependencyDepth)
	}
	if cfg.TypeCheck.Command != "tsc" || cfg.TypeCheck.SuccessMarker != "Found 0 errors." {
		t.Errorf("TypeCheck = %+v", cfg.TypeCheck)
	}
	if cfg.Hooks.Runtime != hooks.RuntimeNative || cfg.Hooks.AbortOnPreFailure {
		t.Errorf("Hooks = %+v", cfg.Hooks)
	}
	if !cfg.Log.Time || !cfg.Log.Ctx || cfg.Log.Heap || !cfg.Log.Color || cfg.Log.Level != LogLevelInfo {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.WatchManifests {
		t.Error("WatchManifests = false, want true")
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("IsValid() = %v", errs)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg, err := load(t, LoadOptions{Root: root})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Root != root {
		t.Errorf("Root = %q, want %q", cfg.Root, root)
	}
	if cfg.UIPath() != filepath.Join(root, "ui") {
		t.Errorf("UIPath() = %q", cfg.UIPath())
	}
	if cfg.DescriptorPath() != filepath.Join(root, "ui", "@build", "bleep", ".tsconfig") {
		t.Errorf("DescriptorPath() = %q", cfg.DescriptorPath())
	}
}

func TestLoad_FileAtRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, ConfigFileName), `
exclude: ["old-site"]
bundle_policy: "convention"
out_dir: "/srv/assets"
hooks: {
	runtime: "virtual"
	env_files: [".env", ".env.local?"]
}
log: heap: true
`)

	cfg, path, err := NewProvider().LoadWithPath(context.Background(), LoadOptions{Root: root})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != filepath.Join(root, ConfigFileName) {
		t.Errorf("path = %q", path)
	}
	if !slices.Equal(cfg.Exclude, []string{"old-site"}) {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if cfg.BundlePolicy != manifest.PolicyConvention {
		t.Errorf("BundlePolicy = %q", cfg.BundlePolicy)
	}
	if cfg.OutPath() != filepath.Clean("/srv/assets") {
		t.Errorf("OutPath() = %q", cfg.OutPath())
	}
	if cfg.Hooks.Runtime != hooks.RuntimeVirtual || len(cfg.Hooks.EnvFiles) != 2 {
		t.Errorf("Hooks = %+v", cfg.Hooks)
	}
	if !cfg.Log.Heap || !cfg.Log.Time {
		t.Errorf("Log = %+v, want heap on and defaults kept", cfg.Log)
	}
	if cfg.UIDir != "ui" {
		t.Errorf("UIDir = %q, want the default", cfg.UIDir)
	}
}

func TestLoad_RootRelativeToFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "bleep.cue")
	testutil.MustWriteFile(t, path, `root: ".."`)

	cfg, err := load(t, LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Root != dir {
		t.Errorf("Root = %q, want %q", cfg.Root, dir)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown enum", `bundle_policy: "magic"`},
		{"unknown field", `bundler_policy: "convention"`},
		{"wrong type", `max_dependency_depth: "eight"`},
		{"depth out of range", `max_dependency_depth: 0`},
		{"syntax", `exclude: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(root, ConfigFileName), tt.content)

			_, err := load(t, LoadOptions{Root: root})
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if id, ok := issue.IssueOf(err); !ok || id != issue.ConfigLoadFailedId {
				t.Errorf("IssueOf() = %v, %v, want ConfigLoadFailedId", id, ok)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := load(t, LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want config file not found", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BLEEP_LOG_COLOR", "false")
	t.Setenv("BLEEP_HOOKS_RUNTIME", "virtual")
	t.Setenv("BLEEP_MAX_DEPENDENCY_DEPTH", "3")

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, ConfigFileName), `log: color: true`)

	cfg, err := load(t, LoadOptions{Root: root})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Color {
		t.Error("Log.Color = true, want the environment to win over the file")
	}
	if cfg.Hooks.Runtime != hooks.RuntimeVirtual {
		t.Errorf("Hooks.Runtime = %q", cfg.Hooks.Runtime)
	}
	if cfg.MaxDependencyDepth != 3 {
		t.Errorf("MaxDependencyDepth = %d", cfg.MaxDependencyDepth)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("BLEEP_BUNDLE_POLICY", "magic")

	_, err := load(t, LoadOptions{Root: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_UnsafeDescriptorDirEnv(t *testing.T) {
	t.Setenv("BLEEP_DESCRIPTOR_DIR", "ui")

	_, err := load(t, LoadOptions{Root: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), "descriptor_dir") {
		t.Errorf("Load() error = %v, want a descriptor_dir error", err)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if valid, _ := l.IsValid(); !valid {
			t.Errorf("%q.IsValid() = false", l)
		}
	}
	valid, errs := LogLevel("loud").IsValid()
	if valid || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidLogLevel) {
		t.Errorf("IsValid() = %v, %v", valid, errs)
	}
}

func TestConfig_IsValid_DescriptorDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	tests := []struct {
		dir     string
		wantErr bool
	}{
		{"ui/@build/bleep/.tsconfig", false},
		{"build/tsconfig", false},
		{filepath.Join(root, "ui-descriptors"), false},
		{".", true},
		{"", true},
		{"ui", true},
		{"ui/", true},
		{filepath.Dir(root), true},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.Root = root
			cfg.DescriptorDir = tt.dir
			valid, errs := cfg.IsValid()
			if valid == tt.wantErr {
				t.Fatalf("IsValid() = %v, %v", valid, errs)
			}
			if tt.wantErr && !errors.Is(errs[0], ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", errs[0])
			}
			if tt.wantErr {
				var invalid *InvalidConfigError
				if !errors.As(errs[0], &invalid) || !errors.Is(errors.Join(invalid.FieldErrors...), ErrUnsafeDescriptorDir) {
					t.Errorf("error = %v, want ErrUnsafeDescriptorDir", errs[0])
				}
			}
		})
	}
}

func TestGenerateCUE_Loads(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	want := DefaultConfig()
	want.Root = root
	want.Exclude = []string{"a", "b"}
	want.Hooks.AbortOnPreFailure = true
	testutil.MustWriteFile(t, filepath.Join(root, ConfigFileName), GenerateCUE(want))

	got, err := load(t, LoadOptions{Root: root})
	if err != nil {
		t.Fatalf("Load() error: %v\n%s", err, GenerateCUE(want))
	}
	if !slices.Equal(got.Exclude, want.Exclude) || !got.Hooks.AbortOnPreFailure {
		t.Errorf("loaded %+v", got)
	}
}

func TestGenerateTOML(t *testing.T) {
	t.Parallel()

	out, err := GenerateTOML(DefaultConfig())
	if err != nil {
		t.Fatalf("GenerateTOML() error: %v", err)
	}
	for _, want := range []string{"ui_dir", "[typecheck]", "success_marker", "[log]"} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateTOML() missing %q:\n%s", want, out)
		}
	}
}
