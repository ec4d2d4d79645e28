// Package verify runs post-install verification steps: host commands whose
// exit status and output confirm a component is actually usable, not just
// present on disk.
package verify

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/toolforge/toolforge/pkg/catalog"
	"github.com/toolforge/toolforge/pkg/engine"
	"github.com/toolforge/toolforge/pkg/telemetry"
)

// DefaultStepTimeout bounds a verification command when the step does not
// carry its own timeout.
const DefaultStepTimeout = 30 * time.Second

// Outcome classifies one component's verification result.
type Outcome string

const (
	// OutcomePassed means the command succeeded and its output matched.
	OutcomePassed Outcome = "passed"

	// OutcomeOutputMismatch means the command succeeded but its output did
	// not match the expectation.
	OutcomeOutputMismatch Outcome = "output_mismatch"

	// OutcomeCommandFailed means the command exited non-zero.
	OutcomeCommandFailed Outcome = "command_failed"

	// OutcomeTimedOut means the command exceeded the step timeout. Kept
	// distinct from OutcomeCommandFailed so slow hosts are diagnosable.
	OutcomeTimedOut Outcome = "timed_out"

	// OutcomeNotVerified means no verification ran: the component declares
	// no step, or it was never installed.
	OutcomeNotVerified Outcome = "not_verified"
)

// Result is one component's verification outcome.
type Result struct {
	// ComponentID identifies the component.
	ComponentID string `json:"component_id"`

	// Outcome classifies what happened.
	Outcome Outcome `json:"outcome"`

	// Output is the command's trimmed combined output, when it ran.
	Output string `json:"output,omitempty"`

	// Message explains non-passed outcomes.
	Message string `json:"message,omitempty"`

	// Duration is the command's wall-clock time.
	Duration time.Duration `json:"duration,omitempty"`
}

// Passed reports whether the outcome confirms the component works.
// Components without a verification step count as passed.
func (r Result) Passed() bool {
	return r.Outcome == OutcomePassed || r.Outcome == OutcomeNotVerified
}

// Verifier runs verification steps through the host shell.
type Verifier struct {
	run     func(ctx context.Context, command string) ([]byte, error)
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// New creates a verifier. metrics may be nil.
func New(logger zerolog.Logger, metrics *telemetry.Metrics) *Verifier {
	return &Verifier{
		run: func(ctx context.Context, command string) ([]byte, error) {
			return exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Component verifies a single component. Components without a verification
// step report OutcomeNotVerified.
func (v *Verifier) Component(ctx context.Context, comp *catalog.Component) Result {
	if comp.Verify == nil {
		return v.record(Result{
			ComponentID: comp.ID,
			Outcome:     OutcomeNotVerified,
			Message:     "no verification step declared",
		})
	}
	step := comp.Verify

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	raw, err := v.run(stepCtx, step.Command)
	duration := time.Since(started)
	output := strings.TrimSpace(string(raw))

	if err != nil {
		outcome := OutcomeCommandFailed
		message := "verification command failed: " + err.Error()
		if stepCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			outcome = OutcomeTimedOut
			message = "verification command timed out after " + timeout.String()
		}
		return v.record(Result{
			ComponentID: comp.ID,
			Outcome:     outcome,
			Output:      output,
			Message:     message,
			Duration:    duration,
		})
	}

	if ok, message := matchOutput(step, output); !ok {
		return v.record(Result{
			ComponentID: comp.ID,
			Outcome:     OutcomeOutputMismatch,
			Output:      output,
			Message:     message,
			Duration:    duration,
		})
	}

	return v.record(Result{
		ComponentID: comp.ID,
		Outcome:     OutcomePassed,
		Output:      output,
		Duration:    duration,
	})
}

// All verifies every component whose installation succeeded. Components
// that failed or were skipped report OutcomeNotVerified, and the returned
// slice follows the order of installResults.
func (v *Verifier) All(ctx context.Context, components []catalog.Component, installResults []engine.InstallationResult) []Result {
	byID := make(map[string]*catalog.Component, len(components))
	for i := range components {
		byID[components[i].ID] = &components[i]
	}

	results := make([]Result, 0, len(installResults))
	for _, ir := range installResults {
		comp, ok := byID[ir.ComponentID]
		if !ok {
			continue
		}
		if !ir.Success {
			results = append(results, v.record(Result{
				ComponentID: ir.ComponentID,
				Outcome:     OutcomeNotVerified,
				Message:     "component was not installed",
			}))
			continue
		}
		results = append(results, v.Component(ctx, comp))
	}
	return results
}

func (v *Verifier) record(r Result) Result {
	v.metrics.ObserveVerification(string(r.Outcome))
	event := v.logger.Info()
	if !r.Passed() {
		event = v.logger.Warn()
	}
	event.
		Str("component", r.ComponentID).
		Str("outcome", string(r.Outcome)).
		Msg("Verification finished")
	return r
}

func matchOutput(step *catalog.VerificationStep, output string) (bool, string) {
	switch step.Match {
	case catalog.MatchExact:
		if output != step.Expect {
			return false, "expected output " + step.Expect + ", got " + output
		}
	case catalog.MatchSubstring:
		if !strings.Contains(output, step.Expect) {
			return false, "output does not contain " + step.Expect
		}
	case catalog.MatchNone, "":
		// exit status only
	}
	return true, ""
}
