// Package engine executes installation plans: it walks a resolver-ordered
// component list with a bounded worker pool, drives each component's method
// ladder with classified retries, and reports one terminal result per
// component.
package engine

import (
	"time"
)

// Status is a component's terminal installation state.
type Status string

const (
	// StatusSucceeded means a backend installed the component in this run.
	StatusSucceeded Status = "succeeded"

	// StatusFailed means every usable method was exhausted without success.
	StatusFailed Status = "failed"

	// StatusSkippedExisting means the component was already installed, so
	// no backend was invoked. It still counts as a success.
	StatusSkippedExisting Status = "skipped_existing"

	// StatusSkippedBlocked means a dependency did not succeed, so the
	// component was never attempted.
	StatusSkippedBlocked Status = "skipped_blocked"

	// StatusSkippedCancelled means the run was cancelled before the
	// component could be attempted.
	StatusSkippedCancelled Status = "skipped_cancelled"
)

// MethodExisting is the method reported when an already-installed component
// is skipped.
const MethodExisting = "existing"

// ErrorKind classifies a component-level installation failure.
type ErrorKind string

const (
	// ErrKindMethodUnavailable means no method in the ladder was usable on
	// this host.
	ErrKindMethodUnavailable ErrorKind = "method_unavailable"

	// ErrKindPermanent means a backend failed in a way retries cannot fix,
	// or transient retries were exhausted.
	ErrKindPermanent ErrorKind = "permanent"

	// ErrKindDependencyFailed means a dependency of the component failed
	// or was itself skipped.
	ErrKindDependencyFailed ErrorKind = "dependency_failed"

	// ErrKindCancelled means the run's context was cancelled.
	ErrKindCancelled ErrorKind = "cancelled"
)

// ErrorDetail is the machine-readable failure attached to a result.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// InstallationResult is one component's terminal outcome. Every component
// handed to InstallAll produces exactly one.
type InstallationResult struct {
	// ComponentID identifies the component.
	ComponentID string `json:"component_id"`

	// Success is true for StatusSucceeded and StatusSkippedExisting.
	Success bool `json:"success"`

	// Status is the terminal state.
	Status Status `json:"status"`

	// Version is the installed version, when a backend could report one.
	Version string `json:"version,omitempty"`

	// Method is the method that produced the outcome. MethodExisting for
	// idempotent skips, empty when nothing was attempted.
	Method string `json:"method,omitempty"`

	// Error carries the failure classification for non-success outcomes.
	Error *ErrorDetail `json:"error,omitempty"`

	// Warnings are non-fatal issues surfaced along the way.
	Warnings []string `json:"warnings,omitempty"`

	// Attempts counts methods that were available and actually ran,
	// including their retries' final outcomes. Unavailable methods are
	// not counted.
	Attempts int `json:"attempts"`

	// Duration is the wall-clock time spent on this component.
	Duration time.Duration `json:"duration"`
}

// Summary aggregates a run's results for reporting and exit decisions.
type Summary struct {
	Total            int      `json:"total"`
	Succeeded        int      `json:"succeeded"`
	Failed           int      `json:"failed"`
	SkippedExisting  int      `json:"skipped_existing"`
	SkippedBlocked   int      `json:"skipped_blocked"`
	SkippedCancelled int      `json:"skipped_cancelled"`
	FailedRequired   []string `json:"failed_required,omitempty"`

	// OverallSuccess is true when every non-optional component succeeded
	// or was already installed.
	OverallSuccess bool `json:"overall_success"`
}

// Summarize folds per-component results into a run summary. optional maps
// component IDs to their optional flag; components absent from the map are
// treated as required.
func Summarize(results []InstallationResult, optional map[string]bool) Summary {
	s := Summary{Total: len(results), OverallSuccess: true}
	for _, r := range results {
		switch r.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusSkippedExisting:
			s.SkippedExisting++
		case StatusFailed:
			s.Failed++
		case StatusSkippedBlocked:
			s.SkippedBlocked++
		case StatusSkippedCancelled:
			s.SkippedCancelled++
		}
		if !r.Success && !optional[r.ComponentID] {
			s.OverallSuccess = false
			s.FailedRequired = append(s.FailedRequired, r.ComponentID)
		}
	}
	return s
}
