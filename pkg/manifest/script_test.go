// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"reflect"
	"testing"
)

func TestSplitScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		want   []Command
	}{
		{
			name:   "single quotes keep spaces",
			script: "cp 'my file.txt' dest",
			want:   []Command{{"cp", "my file.txt", "dest"}},
		},
		{
			name:   "and chain",
			script: "tsc --incremental && rollup --config && cp a b",
			want:   []Command{{"tsc", "--incremental"}, {"rollup", "--config"}, {"cp", "a", "b"}},
		},
		{
			name:   "double quotes and escapes",
			script: `echo "a \"b\" c" d\ e`,
			want:   []Command{{"echo", `a "b" c`, "d e"}},
		},
		{
			name:   "parameters stay literal",
			script: "$npm_execpath run compile",
			want:   []Command{{"$npm_execpath", "run", "compile"}},
		},
		{
			name:   "leading assignment",
			script: "NODE_ENV=production node build.mjs",
			want:   []Command{{"NODE_ENV=production", "node", "build.mjs"}},
		},
		{
			name:   "pipeline is kept whole",
			script: "cat a | wc -l",
			want:   []Command{{"sh", "-c", "cat a | wc -l"}},
		},
		{
			name:   "empty",
			script: "",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SplitScript(tt.script)
			if err != nil {
				t.Fatalf("SplitScript(%q) error: %v", tt.script, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitScript(%q) = %q, want %q", tt.script, got, tt.want)
			}
		})
	}
}

func TestSplitScript_SyntaxError(t *testing.T) {
	t.Parallel()

	if _, err := SplitScript("echo 'unterminated"); err == nil {
		t.Error("expected a syntax error")
	}
}

func TestApplyScripts(t *testing.T) {
	t.Parallel()

	m := &Module{Name: "site"}
	err := applyScripts(m, []script{
		{key: "lint", value: "eslint src"},
		{key: "dev", value: "node pre.js && tsc --composite --declaration && rollup -c && cp out.js ../public"},
		{key: "compile", value: "$npm_execpath run gen && node other.js"},
	})
	if err != nil {
		t.Fatalf("applyScripts() error: %v", err)
	}

	wantPre := []Command{{"node", "pre.js"}}
	// The bundler was already seen in "dev", so "compile" feeds post hooks.
	wantPost := []Command{{"cp", "out.js", "../public"}, {"node", "other.js"}}
	if !reflect.DeepEqual(m.Hooks.Pre, wantPre) {
		t.Errorf("Pre = %q, want %q", m.Hooks.Pre, wantPre)
	}
	if !reflect.DeepEqual(m.Hooks.Post, wantPost) {
		t.Errorf("Post = %q, want %q", m.Hooks.Post, wantPost)
	}
	if !reflect.DeepEqual(m.TypeCheckOptions, []string{"composite", "declaration"}) {
		t.Errorf("TypeCheckOptions = %q", m.TypeCheckOptions)
	}
}

func TestApplyScripts_TypeCheckWithoutFlags(t *testing.T) {
	t.Parallel()

	m := &Module{Name: "chat"}
	if err := applyScripts(m, []script{{key: "compile", value: "tsc"}}); err != nil {
		t.Fatal(err)
	}
	if !m.DeclaresTypeCheck() || len(m.TypeCheckOptions) != 0 {
		t.Errorf("TypeCheckOptions = %#v, want empty non-nil", m.TypeCheckOptions)
	}

	none := &Module{Name: "plain"}
	if err := applyScripts(none, []script{{key: "dev", value: "node x.js"}}); err != nil {
		t.Fatal(err)
	}
	if none.DeclaresTypeCheck() {
		t.Error("module without tsc should not declare type-check options")
	}
}

func TestAddTypeCheckOption_Idempotent(t *testing.T) {
	t.Parallel()

	m := &Module{TypeCheckOptions: []string{"declaration"}}
	for range 3 {
		m.AddTypeCheckOption("composite")
	}
	if !reflect.DeepEqual(m.TypeCheckOptions, []string{"declaration", "composite"}) {
		t.Errorf("TypeCheckOptions = %q", m.TypeCheckOptions)
	}
}

func TestCommand_String(t *testing.T) {
	t.Parallel()

	got := Command{"cp", "my file.txt", "dest"}.String()
	if got != "cp 'my file.txt' dest" {
		t.Errorf("String() = %q", got)
	}
}
