// SPDX-License-Identifier: MPL-2.0

package depgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateModule is returned when two directories share a base name.
	ErrDuplicateModule = errors.New("duplicate module name")
	// ErrDuplicateOutput is returned when two targets write the same bundle.
	ErrDuplicateOutput = errors.New("duplicate bundle output")
	// ErrDependencyDepth is returned when a dependency chain is too deep,
	// which in practice means the manifests form a cycle.
	ErrDependencyDepth = errors.New("dependency depth limit exceeded")
	// ErrUnknownModule is returned when a module is requested by a name the
	// graph does not hold.
	ErrUnknownModule = errors.New("unknown module")
)

type (
	// DuplicateModuleError names the colliding directories.
	DuplicateModuleError struct {
		Name  string
		Roots [2]string
	}

	// DuplicateOutputError names the modules whose targets collide.
	DuplicateOutputError struct {
		Output  string
		Modules [2]string
	}

	// DepthError carries the chain that went past the limit.
	DepthError struct {
		Limit int
		Chain []string
	}

	// CycleError lists the modules left over by a topological sort.
	CycleError struct {
		Cycle []string
	}
)

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q found in both %s and %s", e.Name, e.Roots[0], e.Roots[1])
}

func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }

func (e *DuplicateOutputError) Error() string {
	return fmt.Sprintf("bundle output %q declared by both %q and %q", e.Output, e.Modules[0], e.Modules[1])
}

func (e *DuplicateOutputError) Unwrap() error { return ErrDuplicateOutput }

func (e *DepthError) Error() string {
	return fmt.Sprintf("dependency chain deeper than %d (circular dependency in manifests?): %s",
		e.Limit, strings.Join(e.Chain, " -> "))
}

func (e *DepthError) Unwrap() error { return ErrDependencyDepth }

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle among: %s", strings.Join(e.Cycle, ", "))
}
