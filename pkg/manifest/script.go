// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	typeCheckProgram = "tsc"
	bundlerProgram   = "rollup"
)

var (
	// buildScripts are the manifest script keys that describe the build.
	buildScripts = map[string]bool{"deps": true, "compile": true, "dev": true}

	// noopPrograms re-enter the package manager and are dropped.
	noopPrograms = map[string]bool{"$npm_execpath": true, "yarn": true, "npm": true}
)

type script struct {
	key   string
	value string
}

// SplitScript tokenizes a manifest script into commands. Commands chained
// with && or written as separate statements are split; quoting is removed
// so that 'a b' stays one argument. Statements that are not plain commands
// (pipes, ||, redirections) are kept whole as `sh -c <statement>`.
func SplitScript(src string) ([]Command, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(src), "")
	if err != nil {
		return nil, err
	}

	var cmds []Command
	for _, stmt := range file.Stmts {
		cmds = appendStmt(cmds, stmt)
	}
	return cmds, nil
}

func appendStmt(cmds []Command, stmt *syntax.Stmt) []Command {
	plain := !stmt.Negated && !stmt.Background && !stmt.Coprocess && len(stmt.Redirs) == 0
	switch x := stmt.Cmd.(type) {
	case *syntax.BinaryCmd:
		if plain && x.Op == syntax.AndStmt {
			return appendStmt(appendStmt(cmds, x.X), x.Y)
		}
	case *syntax.CallExpr:
		if plain {
			return append(cmds, callWords(x))
		}
	}
	return append(cmds, Command{"sh", "-c", printNode(stmt)})
}

func callWords(call *syntax.CallExpr) Command {
	cmd := make(Command, 0, len(call.Assigns)+len(call.Args))
	for _, as := range call.Assigns {
		value := ""
		if as.Value != nil {
			value = wordString(as.Value)
		}
		cmd = append(cmd, as.Name.Value+"="+value)
	}
	for _, w := range call.Args {
		cmd = append(cmd, wordString(w))
	}
	return cmd
}

func wordString(w *syntax.Word) string {
	var b strings.Builder
	for _, part := range w.Parts {
		writePart(&b, part, false)
	}
	return b.String()
}

func writePart(b *strings.Builder, part syntax.WordPart, quoted bool) {
	switch x := part.(type) {
	case *syntax.Lit:
		b.WriteString(unescapeLit(x.Value, quoted))
	case *syntax.SglQuoted:
		b.WriteString(x.Value)
	case *syntax.DblQuoted:
		for _, p := range x.Parts {
			writePart(b, p, true)
		}
	case *syntax.ParamExp:
		if x.Short && x.Param != nil {
			b.WriteString("$" + x.Param.Value)
			return
		}
		b.WriteString(printNode(x))
	default:
		b.WriteString(printNode(part))
	}
}

// unescapeLit drops the backslashes the shell would remove. Inside double
// quotes only \$ \` \" \\ are escapes.
func unescapeLit(s string, quoted bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			next := s[i+1]
			if !quoted || strings.IndexByte("$`\"\\", next) >= 0 {
				b.WriteByte(next)
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func printNode(node syntax.Node) string {
	var b strings.Builder
	if err := syntax.NewPrinter(syntax.SingleLine(true)).Print(&b, node); err != nil {
		return fmt.Sprint(node)
	}
	return strings.TrimSpace(b.String())
}

// joinCommand renders cmd for display, quoting arguments that need it.
func joinCommand(cmd Command) string {
	parts := make([]string, len(cmd))
	for i, arg := range cmd {
		parts[i] = arg
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"\\|&;<>()*?[]#~") {
			if q, err := syntax.Quote(arg, syntax.LangBash); err == nil {
				parts[i] = q
			}
		}
	}
	return strings.Join(parts, " ")
}

// applyScripts classifies the build commands of m's scripts. Commands seen
// before the bundler becomes pre hooks, commands after it post hooks.
func applyScripts(m *Module, scripts []script) error {
	hooks := &m.Hooks.Pre
	for _, s := range scripts {
		if !buildScripts[s.key] {
			continue
		}
		cmds, err := SplitScript(s.value)
		if err != nil {
			return fmt.Errorf("script %q: %w", s.key, err)
		}
		for _, cmd := range cmds {
			if len(cmd) == 0 {
				continue
			}
			switch prog := cmd[0]; {
			case prog == typeCheckProgram:
				m.TypeCheckOptions = flagNames(cmd[1:])
			case prog == bundlerProgram:
				hooks = &m.Hooks.Post
			case noopPrograms[prog]:
			default:
				*hooks = append(*hooks, cmd)
			}
		}
	}
	return nil
}

// flagNames returns the --flags of args without their prefix. The result is
// never nil.
func flagNames(args []string) []string {
	names := []string{}
	for _, a := range args {
		if name, ok := strings.CutPrefix(a, "--"); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}
