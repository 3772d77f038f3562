// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// GenerateCUE renders cfg in the bleep.cue format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bleep configuration\n\n")
	fmt.Fprintf(&sb, "root: %q\n", cfg.Root)
	fmt.Fprintf(&sb, "ui_dir: %q\n", cfg.UIDir)
	fmt.Fprintf(&sb, "out_dir: %q\n", cfg.OutDir)
	fmt.Fprintf(&sb, "descriptor_dir: %q\n", cfg.DescriptorDir)
	sb.WriteString("exclude: " + cueList(cfg.Exclude) + "\n")
	fmt.Fprintf(&sb, "bundle_policy: %q\n", cfg.BundlePolicy)
	fmt.Fprintf(&sb, "convention_entry: %q\n", cfg.ConventionEntry)
	fmt.Fprintf(&sb, "max_dependency_depth: %d\n", cfg.MaxDependencyDepth)
	fmt.Fprintf(&sb, "watch_manifests: %v\n", cfg.WatchManifests)

	sb.WriteString("\ntypecheck: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.TypeCheck.Command)
	fmt.Fprintf(&sb, "\tsuccess_marker: %q\n", cfg.TypeCheck.SuccessMarker)
	sb.WriteString("}\n")

	sb.WriteString("\nbundler: {\n")
	fmt.Fprintf(&sb, "\ttarget: %q\n", cfg.Bundler.Target)
	fmt.Fprintf(&sb, "\tsourcemap: %v\n", cfg.Bundler.Sourcemap)
	sb.WriteString("}\n")

	sb.WriteString("\nhooks: {\n")
	fmt.Fprintf(&sb, "\truntime: %q\n", cfg.Hooks.Runtime)
	fmt.Fprintf(&sb, "\tabort_on_pre_failure: %v\n", cfg.Hooks.AbortOnPreFailure)
	sb.WriteString("\tenv_files: " + cueList(cfg.Hooks.EnvFiles) + "\n")
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\ttime: %v\n", cfg.Log.Time)
	fmt.Fprintf(&sb, "\tctx: %v\n", cfg.Log.Ctx)
	fmt.Fprintf(&sb, "\theap: %v\n", cfg.Log.Heap)
	fmt.Fprintf(&sb, "\tcolor: %v\n", cfg.Log.Color)
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	return sb.String()
}

// GenerateTOML renders cfg as TOML.
func GenerateTOML(cfg *Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
