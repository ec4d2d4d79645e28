package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks. The typed errors below unwrap to
// these so callers can branch on kind without inspecting concrete types.
var (
	// ErrCycle indicates a circular dependency in the requested closure.
	ErrCycle = errors.New("dependency cycle detected")

	// ErrConflict indicates two components in the closure conflict.
	ErrConflict = errors.New("conflicting components in request")

	// ErrMissingDependency indicates a depends_on id that is not
	// resolvable from the catalog.
	ErrMissingDependency = errors.New("missing dependency")
)

// CycleError names the component ids participating in a dependency cycle.
type CycleError struct {
	IDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.IDs, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// ConflictError names a conflicting component pair found in the closure.
// Conflicts are symmetric regardless of which side declared them.
type ConflictError struct {
	A, B string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("components %s and %s conflict and cannot be installed together", e.A, e.B)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// MissingDependencyError names an unresolvable depends_on reference.
type MissingDependencyError struct {
	Component string
	Missing   string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("component %s depends on %s, which is not in the catalog", e.Component, e.Missing)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }
