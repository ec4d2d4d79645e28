// Package history persists installation runs and their per-component
// outcomes in a local SQLite database, so past runs can be inspected and
// re-runs can explain what changed.
package history

import (
	"time"

	"github.com/toolforge/toolforge/pkg/engine"
	"github.com/toolforge/toolforge/pkg/verify"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one installation run.
type Run struct {
	// ID is the run's UUID.
	ID string `json:"id"`

	// Profile names the profile or request that produced the run.
	Profile string `json:"profile,omitempty"`

	// Status is the run's lifecycle state.
	Status RunStatus `json:"status"`

	// Host is the JSON-encoded host snapshot captured at run start.
	Host string `json:"host,omitempty"`

	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ComponentRecord is one component's outcome within a run.
type ComponentRecord struct {
	ID           int64  `json:"id"`
	RunID        string `json:"run_id"`
	ComponentID  string `json:"component_id"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
	Method       string `json:"method,omitempty"`
	Version      string `json:"version,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Attempts     int    `json:"attempts"`
	DurationMS   int64  `json:"duration_ms"`
	Verification string `json:"verification,omitempty"`
}

// RecordsFromResults converts engine results, and optionally their
// verification outcomes, into storable component records.
func RecordsFromResults(runID string, results []engine.InstallationResult, verifications []verify.Result) []ComponentRecord {
	verdicts := make(map[string]verify.Outcome, len(verifications))
	for _, v := range verifications {
		verdicts[v.ComponentID] = v.Outcome
	}

	records := make([]ComponentRecord, 0, len(results))
	for _, r := range results {
		rec := ComponentRecord{
			RunID:        runID,
			ComponentID:  r.ComponentID,
			Status:       string(r.Status),
			Success:      r.Success,
			Method:       r.Method,
			Version:      r.Version,
			Attempts:     r.Attempts,
			DurationMS:   r.Duration.Milliseconds(),
			Verification: string(verdicts[r.ComponentID]),
		}
		if r.Error != nil {
			rec.ErrorKind = string(r.Error.Kind)
			rec.ErrorMessage = r.Error.Message
		}
		records = append(records, rec)
	}
	return records
}
