// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

const (
	// StateCreated is the state before Run.
	StateCreated State = iota
	// StateTypeChecking waits for the type-checker's first clean build.
	StateTypeChecking
	// StateBundling is the steady state: the bundler watch session runs.
	StateBundling
	// StateStopped is terminal: the pipeline was shut down.
	StateStopped
	// StateFailed is terminal: a collaborator could not start.
	StateFailed
)

// ErrInvalidState is returned when a State value is not a defined state.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is the lifecycle state of a Controller.
	State int32

	// InvalidStateError wraps ErrInvalidState with the offending value.
	InvalidStateError struct {
		Value State
	}
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateTypeChecking:
		return "type-checking"
	case StateBundling:
		return "bundling"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=created, 1=type-checking, 2=bundling, 3=stopped, 4=failed)", e.Value)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil for a defined state.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateTypeChecking, StateBundling, StateStopped, StateFailed:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal reports whether the controller can no longer run.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
