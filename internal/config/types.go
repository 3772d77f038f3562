// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bleepbuild/bleep/internal/hooks"
	"github.com/bleepbuild/bleep/pkg/manifest"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidDepth is returned for a non-positive max_dependency_depth.
	ErrInvalidDepth = errors.New("invalid max dependency depth")
	// ErrUnsafeDescriptorDir is returned when descriptor_dir would cover the
	// project root or the UI directory. The directory is wiped on every run.
	ErrUnsafeDescriptorDir = errors.New("descriptor_dir must not contain the root or ui_dir")
)

type (
	// LogLevel names the lowest level the log sink prints.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the bleep configuration. Relative paths are resolved
	// against Root by the accessor methods.
	Config struct {
		Root               string                `json:"root" mapstructure:"root" toml:"root"`
		UIDir              string                `json:"ui_dir" mapstructure:"ui_dir" toml:"ui_dir"`
		OutDir             string                `json:"out_dir" mapstructure:"out_dir" toml:"out_dir"`
		DescriptorDir      string                `json:"descriptor_dir" mapstructure:"descriptor_dir" toml:"descriptor_dir"`
		Exclude            []string              `json:"exclude" mapstructure:"exclude" toml:"exclude"`
		BundlePolicy       manifest.BundlePolicy `json:"bundle_policy" mapstructure:"bundle_policy" toml:"bundle_policy"`
		ConventionEntry    string                `json:"convention_entry" mapstructure:"convention_entry" toml:"convention_entry"`
		MaxDependencyDepth int                   `json:"max_dependency_depth" mapstructure:"max_dependency_depth" toml:"max_dependency_depth"`
		WatchManifests     bool                  `json:"watch_manifests" mapstructure:"watch_manifests" toml:"watch_manifests"`
		TypeCheck          TypeCheckConfig       `json:"typecheck" mapstructure:"typecheck" toml:"typecheck"`
		Bundler            BundlerConfig         `json:"bundler" mapstructure:"bundler" toml:"bundler"`
		Hooks              HooksConfig           `json:"hooks" mapstructure:"hooks" toml:"hooks"`
		Log                LogConfig             `json:"log" mapstructure:"log" toml:"log"`
	}

	// TypeCheckConfig configures the type-checker process.
	TypeCheckConfig struct {
		Command       string `json:"command" mapstructure:"command" toml:"command"`
		SuccessMarker string `json:"success_marker" mapstructure:"success_marker" toml:"success_marker"`
	}

	// BundlerConfig configures the bundler engine.
	BundlerConfig struct {
		Target    string `json:"target" mapstructure:"target" toml:"target"`
		Sourcemap bool   `json:"sourcemap" mapstructure:"sourcemap" toml:"sourcemap"`
	}

	// HooksConfig configures build hook execution.
	HooksConfig struct {
		Runtime hooks.RuntimeKind `json:"runtime" mapstructure:"runtime" toml:"runtime"`
		// AbortOnPreFailure skips a bundle whose pre hook failed.
		AbortOnPreFailure bool `json:"abort_on_pre_failure" mapstructure:"abort_on_pre_failure" toml:"abort_on_pre_failure"`
		// EnvFiles are dotenv files relative to each module root. A trailing
		// '?' marks a file as optional.
		EnvFiles []string `json:"env_files" mapstructure:"env_files" toml:"env_files"`
	}

	// LogConfig configures the log sink.
	LogConfig struct {
		Time  bool     `json:"time" mapstructure:"time" toml:"time"`
		Ctx   bool     `json:"ctx" mapstructure:"ctx" toml:"ctx"`
		Heap  bool     `json:"heap" mapstructure:"heap" toml:"heap"`
		Color bool     `json:"color" mapstructure:"color" toml:"color"`
		Level LogLevel `json:"level" mapstructure:"level" toml:"level"`
	}
)

// DefaultConfig returns the default configuration. Root is left empty and
// filled with the working directory on load.
func DefaultConfig() *Config {
	return &Config{
		UIDir:              "ui",
		OutDir:             "public/compiled",
		DescriptorDir:      "ui/@build/bleep/.tsconfig",
		Exclude:            []string{},
		BundlePolicy:       manifest.PolicyConfigFile,
		ConventionEntry:    "src/main.ts",
		MaxDependencyDepth: 8,
		WatchManifests:     true,
		TypeCheck: TypeCheckConfig{
			Command:       "tsc",
			SuccessMarker: "Found 0 errors.",
		},
		Bundler: BundlerConfig{
			Target: "es2015",
		},
		Hooks: HooksConfig{
			Runtime:  hooks.RuntimeNative,
			EnvFiles: []string{},
		},
		Log: LogConfig{
			Time:  true,
			Ctx:   true,
			Color: true,
			Level: LogLevelInfo,
		},
	}
}

// IsValid returns whether the Config has valid fields. The CUE schema
// checks the file; this also covers values from the environment.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if err := c.BundlePolicy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Hooks.Runtime.Validate(); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.MaxDependencyDepth < 1 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidDepth, c.MaxDependencyDepth))
	}
	desc := c.DescriptorPath()
	if containsPath(desc, c.abs(".")) || containsPath(desc, c.UIPath()) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsafeDescriptorDir, c.DescriptorDir))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// containsPath reports whether p is dir or lies below it.
func containsPath(dir, p string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absP, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absP)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }
