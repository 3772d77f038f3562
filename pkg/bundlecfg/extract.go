// SPDX-License-Identifier: MPL-2.0

package bundlecfg

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ohler55/ojg/oj"
	"github.com/ohler55/ojg/sen"
)

var (
	// ErrNoProjectCall is returned when the source never calls the helper.
	ErrNoProjectCall = errors.New("project helper call not found")

	// ErrSyntax is returned for constructs the reader does not understand.
	ErrSyntax = errors.New("unsupported bundler configuration syntax")

	callName = regexp.MustCompile(`([A-Za-z_$][\w$.]*)\(`)
)

type (
	// Call is a function call that appeared as a value inside the literal.
	Call struct {
		Name string
		Args []any
	}

	// SyntaxError locates an unsupported construct by line and column.
	SyntaxError struct {
		Line   int
		Column int
		Msg    string
	}
)

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Extract finds the first call to callee in src and returns its object
// literal argument. Calls inside the literal become Call values.
func Extract(src []byte, callee string) (map[string]any, error) {
	re := regexp.MustCompile(`(^|[^\w$.])` + regexp.QuoteMeta(callee) + `\s*\(\s*`)
	loc := re.FindIndex(src)
	if loc == nil {
		return nil, fmt.Errorf("%w: %s(...)", ErrNoProjectCall, callee)
	}
	start := loc[1]
	if start >= len(src) || src[start] != '{' {
		return nil, syntaxErrorAt(src, start, "argument of %s is not an object literal", callee)
	}

	lit, err := literal(src, start)
	if err != nil {
		return nil, err
	}

	p := &sen.Parser{}
	for _, m := range callName.FindAllSubmatch(lit, -1) {
		name := string(m[1])
		p.AddTokenFunc(name, func(args ...any) any {
			return Call{Name: name, Args: slices.Clone(args)}
		})
	}
	v, err := p.Parse(lit)
	if err != nil {
		var pe *oj.ParseError
		if errors.As(err, &pe) {
			line, col := position(src, start)
			if pe.Line > 1 {
				col = 1
			}
			return nil, &SyntaxError{Line: line + pe.Line - 1, Column: col + pe.Column - 1, Msg: pe.Message}
		}
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, syntaxErrorAt(src, start, "argument of %s is not an object literal", callee)
	}
	return obj, nil
}

// AsCall reports whether v stands for a function call in the literal.
func AsCall(v any) (Call, bool) {
	c, ok := v.(Call)
	return c, ok
}

// literal returns the balanced object literal starting at src[start] in a
// form the SEN parser reads. Comments, quoting and trailing commas are left
// to the parser. Template literals and strings with JavaScript escapes are
// re-encoded as JSON strings, undefined becomes null, and constructs that
// need evaluation are rejected.
func literal(src []byte, start int) ([]byte, error) {
	var out []byte
	depth := 0
	for i := start; i < len(src); {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := i
			for end < len(src) && src[end] != '\n' {
				end++
			}
			out = append(out, src[i:end]...)
			i = end
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(string(src[i+2:]), "*/")
			if end < 0 {
				return nil, syntaxErrorAt(src, i, "unterminated comment")
			}
			out = append(out, src[i:i+2+end+2]...)
			i += end + 4
		case c == '\'' || c == '"' || c == '`':
			end, err := stringEnd(src, i)
			if err != nil {
				return nil, err
			}
			raw := string(src[i+1 : end])
			switch {
			case c == '`' && strings.Contains(raw, "${"):
				return nil, syntaxErrorAt(src, i, "template literal interpolation")
			case c == '`' || strings.ContainsRune(raw, '\\'):
				s, err := unescape(raw)
				if err != nil {
					return nil, syntaxErrorAt(src, i, "%v", err)
				}
				out = append(out, oj.JSON(s)...)
			default:
				out = append(out, src[i:end+1]...)
			}
			i = end + 1
		case c == '.' && strings.HasPrefix(string(src[i:]), "..."):
			return nil, syntaxErrorAt(src, i, "spread syntax")
		case c == '=' && i+1 < len(src) && src[i+1] == '>':
			return nil, syntaxErrorAt(src, i, "arrow function")
		case c >= '0' && c <= '9':
			end := i
			for end < len(src) && (isIdentPart(src[end]) || src[end] == '+' || src[end] == '-') {
				end++
			}
			out = append(out, src[i:end]...)
			i = end
		case isIdentStart(c):
			end := i
			for end < len(src) && isIdentPart(src[end]) {
				end++
			}
			switch ident := string(src[i:end]); ident {
			case "undefined":
				out = append(out, "null"...)
			case "new", "function", "async", "await", "typeof":
				return nil, syntaxErrorAt(src, i, "%s expression", ident)
			default:
				out = append(out, ident...)
			}
			i = end
		default:
			switch c {
			case '{', '[', '(':
				depth++
			case '}', ']', ')':
				depth--
			}
			out = append(out, c)
			i++
			if depth == 0 {
				return out, nil
			}
		}
	}
	return nil, syntaxErrorAt(src, start, "unterminated object literal")
}

// stringEnd returns the index of the quote closing the string opened at
// src[start].
func stringEnd(src []byte, start int) (int, error) {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i, nil
		case '\n':
			if quote != '`' {
				return 0, syntaxErrorAt(src, start, "unterminated string")
			}
		}
	}
	return 0, syntaxErrorAt(src, start, "unterminated string")
}

// unescape decodes the JavaScript escape sequences of a string body.
func unescape(raw string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(raw); {
		if raw[i] != '\\' || i+1 >= len(raw) {
			r, size := utf8.DecodeRuneInString(raw[i:])
			b.WriteRune(r)
			i += size
			continue
		}
		c := raw[i+1]
		i += 2
		switch c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\r':
			if i < len(raw) && raw[i] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			if i+2 > len(raw) {
				return "", errors.New(`malformed \x escape`)
			}
			n, err := strconv.ParseUint(raw[i:i+2], 16, 8)
			if err != nil {
				return "", errors.New(`malformed \x escape`)
			}
			b.WriteRune(rune(n))
			i += 2
		case 'u':
			r, n, err := unicodeEscape(raw[i:])
			if err != nil {
				return "", err
			}
			i += n
			if utf16.IsSurrogate(r) && strings.HasPrefix(raw[i:], `\u`) {
				if lo, m, err := unicodeEscape(raw[i+2:]); err == nil {
					if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
						r = pair
						i += 2 + m
					}
				}
			}
			b.WriteRune(r)
		default:
			r, size := utf8.DecodeRuneInString(raw[i-1:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String(), nil
}

// unicodeEscape reads the part of a \u escape after the u, either four hex
// digits or a braced code point.
func unicodeEscape(s string) (rune, int, error) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0, errors.New(`malformed \u escape`)
		}
		n, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || n > utf8.MaxRune {
			return 0, 0, errors.New(`malformed \u escape`)
		}
		return rune(n), end + 1, nil
	}
	if len(s) < 4 {
		return 0, 0, errors.New(`malformed \u escape`)
	}
	n, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, 0, errors.New(`malformed \u escape`)
	}
	return rune(n), 4, nil
}

func position(src []byte, off int) (line, col int) {
	line, col = 1, 1
	for _, c := range src[:min(off, len(src))] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func syntaxErrorAt(src []byte, off int, format string, args ...any) error {
	line, col := position(src, off)
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}
