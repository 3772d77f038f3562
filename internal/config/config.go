// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/bleepbuild/bleep/internal/issue"
	"github.com/bleepbuild/bleep/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "bleep"
	// ConfigFileName is the configuration file looked up at the root.
	ConfigFileName = "bleep.cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "BLEEP"
)

//go:embed config_schema.cue
var configSchema string

// loadWithOptions reads defaults, the config file and the environment, in
// that order of precedence from lowest to highest.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	switch {
	case opts.ConfigFilePath != "":
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'bleep config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	default:
		root := opts.Root
		if root == "" {
			root = "."
		}
		if p := filepath.Join(root, ConfigFileName); fileExists(p) {
			resolvedPath = p
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", loadFailure(resolvedPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", loadFailure(resolvedPath, fmt.Errorf("failed to parse config: %w", err))
	}

	if err := cfg.resolveRoot(opts.Root, resolvedPath); err != nil {
		return nil, "", err
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", loadFailure(resolvedPath, errs[0])
	}

	return &cfg, resolvedPath, nil
}

func loadFailure(path string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("load configuration").
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the values match the schema, see 'bleep config show'").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err)
	if path != "" {
		ec = ec.WithResource(path)
	}
	return ec.BuildError()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root", d.Root)
	v.SetDefault("ui_dir", d.UIDir)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("descriptor_dir", d.DescriptorDir)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("bundle_policy", string(d.BundlePolicy))
	v.SetDefault("convention_entry", d.ConventionEntry)
	v.SetDefault("max_dependency_depth", d.MaxDependencyDepth)
	v.SetDefault("watch_manifests", d.WatchManifests)
	v.SetDefault("typecheck.command", d.TypeCheck.Command)
	v.SetDefault("typecheck.success_marker", d.TypeCheck.SuccessMarker)
	v.SetDefault("bundler.target", d.Bundler.Target)
	v.SetDefault("bundler.sourcemap", d.Bundler.Sourcemap)
	v.SetDefault("hooks.runtime", string(d.Hooks.Runtime))
	v.SetDefault("hooks.abort_on_pre_failure", d.Hooks.AbortOnPreFailure)
	v.SetDefault("hooks.env_files", d.Hooks.EnvFiles)
	v.SetDefault("log.time", d.Log.Time)
	v.SetDefault("log.ctx", d.Log.Ctx)
	v.SetDefault("log.heap", d.Log.Heap)
	v.SetDefault("log.color", d.Log.Color)
	v.SetDefault("log.level", string(d.Log.Level))
}

// resolveRoot makes Root absolute. An explicit root wins; a root from the
// file is relative to the file; otherwise the working directory is used.
func (c *Config) resolveRoot(explicit, configPath string) error {
	root := c.Root
	switch {
	case explicit != "":
		root = explicit
	case root != "" && configPath != "" && !filepath.IsAbs(root):
		root = filepath.Join(filepath.Dir(configPath), root)
	case root == "":
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root %q: %w", root, err)
	}
	c.Root = abs
	return nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// UIPath returns the directory walked for modules.
func (c *Config) UIPath() string { return c.abs(c.UIDir) }

// OutPath returns the bundle output directory.
func (c *Config) OutPath() string { return c.abs(c.OutDir) }

// DescriptorPath returns the generated descriptor directory.
func (c *Config) DescriptorPath() string { return c.abs(c.DescriptorDir) }

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
