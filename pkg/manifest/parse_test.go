// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bleepbuild/bleep/internal/testutil"
	"github.com/bleepbuild/bleep/pkg/bundlecfg"
)

const analyseConfig = `import { rollupProject, copy } from '@build/rollupProject';

export default rollupProject({
  main: {
    name: 'LichessAnalyse',
    input: 'src/main.ts',
    output: 'analysisBoard',
  },
  nvui: {
    name: 'NVUI',
    input: 'src/plugins/nvui.ts',
    output: 'analysisBoard.nvui',
    onwarn: suppressThisIsUndefined,
    plugins: [copy({ targets: [{ src: 'data/*.json', dest: '../../public/data' }] })],
  },
});
`

func TestParse(t *testing.T) {
	t.Parallel()

	ui := t.TempDir()
	dir := testutil.WriteModule(t, ui, testutil.ModuleFixture{
		Name: "analyse",
		Scripts: []testutil.Script{
			{Key: "dev", Value: "node gen.js && tsc --composite && rollup -c && cp a b"},
		},
		Dependencies:    []string{"common", "chess", "tree"},
		BundlerConfig:   analyseConfig,
		TypeCheckConfig: `{ "compilerOptions": {} }`,
	})

	m, err := Parse(dir, Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if m.Name != "analyse" || m.Root != dir {
		t.Errorf("Name, Root = %q, %q", m.Name, m.Root)
	}
	if !reflect.DeepEqual(m.ManifestDependencies, []string{"common", "chess", "tree"}) {
		t.Errorf("ManifestDependencies = %q", m.ManifestDependencies)
	}
	if !m.HasTypeCheckConfig {
		t.Error("HasTypeCheckConfig = false")
	}
	if m.Alias != "analysisBoard" {
		t.Errorf("Alias = %q, want analysisBoard", m.Alias)
	}
	if len(m.Hooks.Pre) != 1 || len(m.Hooks.Post) != 1 {
		t.Errorf("Hooks = %+v", m.Hooks)
	}

	if len(m.BundleTargets) != 2 {
		t.Fatalf("BundleTargets = %d, want 2", len(m.BundleTargets))
	}
	main, nvui := m.BundleTargets[0], m.BundleTargets[1]
	if !main.IsMainBuild || main.ExportName != "LichessAnalyse" || main.Module != m {
		t.Errorf("main target = %+v", main)
	}
	if nvui.IsMainBuild || nvui.Output != "analysisBoard.nvui" || nvui.OnWarn != "suppressThisIsUndefined" {
		t.Errorf("nvui target = %+v", nvui)
	}
	if len(nvui.Plugins) != 1 || nvui.Plugins[0].Name != "copy" {
		t.Errorf("nvui plugins = %+v", nvui.Plugins)
	}
	if m.MainTarget() != main {
		t.Error("MainTarget() should return the main key")
	}
	if !m.RefersTo("analyse") || !m.RefersTo("analysisBoard") || m.RefersTo("analysisBoard.nvui") {
		t.Error("RefersTo() mismatch")
	}
}

func TestParse_MainBuildByOutputName(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteModule(t, t.TempDir(), testutil.ModuleFixture{
		Name:          "round",
		BundlerConfig: `rollupProject({ board: { input: 'src/main.ts', output: 'round' } })`,
	})

	m, err := Parse(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if m.Alias != "" {
		t.Errorf("Alias = %q, want none", m.Alias)
	}
	if !m.BundleTargets[0].IsMainBuild || m.BundleTargets[0].ExportName != "round" {
		t.Errorf("target = %+v", m.BundleTargets[0])
	}
}

func TestParse_ConventionPolicy(t *testing.T) {
	t.Parallel()

	ui := t.TempDir()
	withEntry := testutil.WriteModule(t, ui, testutil.ModuleFixture{
		Name:  "puz",
		Files: map[string]string{"src/main.ts": "export {}"},
	})
	withoutEntry := testutil.WriteModule(t, ui, testutil.ModuleFixture{Name: "bare"})

	opts := Options{Policy: PolicyConvention, ConventionEntry: "src/main.ts"}
	m, err := Parse(withEntry, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.BundleTargets) != 1 || m.BundleTargets[0].Output != "puz" || !m.BundleTargets[0].IsMainBuild {
		t.Errorf("convention target = %+v", m.BundleTargets)
	}

	bare, err := Parse(withoutEntry, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(bare.BundleTargets) != 0 {
		t.Errorf("module without entry got targets %+v", bare.BundleTargets)
	}

	cfgOnly, err := Parse(withEntry, Options{Policy: PolicyConfigFile, ConventionEntry: "src/main.ts"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgOnly.BundleTargets) != 0 {
		t.Error("config-file policy must not derive targets")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	ui := t.TempDir()

	badJSON := filepath.Join(ui, "broken")
	testutil.MustWriteFile(t, filepath.Join(badJSON, ManifestFile), `{"scripts": {`)

	badScript := filepath.Join(ui, "script")
	testutil.MustWriteFile(t, filepath.Join(badScript, ManifestFile), `{"scripts": {"dev": 42}}`)

	noCall := testutil.WriteModule(t, ui, testutil.ModuleFixture{
		Name:          "nocall",
		BundlerConfig: `export default { input: 'x' }`,
	})
	noOutput := testutil.WriteModule(t, ui, testutil.ModuleFixture{
		Name:          "nooutput",
		BundlerConfig: `rollupProject({ main: { input: 'src/main.ts' } })`,
	})

	tests := []struct {
		name string
		dir  string
		also error
	}{
		{"invalid json", badJSON, nil},
		{"non-string script", badScript, nil},
		{"missing helper call", noCall, bundlecfg.ErrNoProjectCall},
		{"target without output", noOutput, nil},
		{"missing manifest", filepath.Join(ui, "absent"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.dir, Options{})
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Parse() error = %v, want ErrParse", err)
			}
			if tt.also != nil && !errors.Is(err, tt.also) {
				t.Errorf("Parse() error = %v, want it to wrap %v", err, tt.also)
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Path == "" {
				t.Errorf("error should carry the offending path, got %v", err)
			}
		})
	}
}

func TestBundlePolicy_Validate(t *testing.T) {
	t.Parallel()

	for _, p := range []BundlePolicy{PolicyConfigFile, PolicyConvention, ""} {
		if err := p.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v", p, err)
		}
	}
	if err := BundlePolicy("magic").Validate(); err == nil {
		t.Error("unknown policy should fail validation")
	}
}
