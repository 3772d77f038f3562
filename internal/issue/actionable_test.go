// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "discover modules"},
			expected: "failed to discover modules",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "parse manifest",
				Resource:  "ui/site/package.json",
			},
			expected: "failed to parse manifest: ui/site/package.json",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "parse manifest",
				Resource:  "ui/site/package.json",
				Cause:     errors.New("unexpected EOF"),
			},
			expected: "failed to parse manifest: ui/site/package.json: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("permission denied")
	err := NewErrorContext().
		WithOperation("write descriptor").
		WithResource("site.tsconfig.json").
		WithSuggestion("Check descriptor_dir").
		WithSuggestion("Run with --verbose").
		Wrap(fmt.Errorf("open: %w", root)).
		Build()

	short := err.Format(false)
	if !strings.Contains(short, "\n  • Check descriptor_dir") {
		t.Errorf("Format(false) missing suggestion bullet:\n%s", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Errorf("Format(false) should not include the chain:\n%s", short)
	}

	long := err.Format(true)
	if !strings.Contains(long, "1. open: permission denied") || !strings.Contains(long, "2. permission denied") {
		t.Errorf("Format(true) missing numbered chain:\n%s", long)
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if got := NewErrorContext().WithResource("x").Build(); got != nil {
		t.Errorf("Build() = %v, want nil", got)
	}
	if got := NewErrorContext().BuildError(); got != nil {
		t.Errorf("BuildError() = %v, want untyped nil", got)
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := NewErrorContext().WithOperation("load config").Wrap(sentinel).BuildError()
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	inner := NewErrorContext().
		WithOperation("parse manifest").
		WithIssue(ManifestParseFailedId).
		Wrap(errors.New("bad json")).
		BuildError()
	outer := NewErrorContext().WithOperation("discover modules").Wrap(inner).BuildError()

	id, ok := IssueOf(fmt.Errorf("startup: %w", outer))
	if !ok || id != ManifestParseFailedId {
		t.Errorf("IssueOf() = (%d, %v), want (%d, true)", id, ok, ManifestParseFailedId)
	}

	if _, ok := IssueOf(errors.New("plain")); ok {
		t.Error("IssueOf(plain error) should report false")
	}
	if WrapWithOperation(nil, "noop") != nil {
		t.Error("WrapWithOperation(nil) should be nil")
	}
}
