package verify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/toolforge/toolforge/pkg/catalog"
	"github.com/toolforge/toolforge/pkg/engine"
)

func testComponent(step *catalog.VerificationStep) *catalog.Component {
	return &catalog.Component{
		ID:             "tool.sample",
		Category:       catalog.CategoryTool,
		InstallMethods: []string{"apt"},
		Verify:         step,
	}
}

func TestComponent_ExactMatch(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	r := v.Component(context.Background(), testComponent(&catalog.VerificationStep{
		Command: "echo v1.2.3",
		Expect:  "v1.2.3",
		Match:   catalog.MatchExact,
	}))
	if r.Outcome != OutcomePassed {
		t.Fatalf("Expected passed, got %+v", r)
	}
	if r.Output != "v1.2.3" {
		t.Errorf("Expected trimmed output v1.2.3, got %q", r.Output)
	}
}

func TestComponent_SubstringMatch(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	r := v.Component(context.Background(), testComponent(&catalog.VerificationStep{
		Command: "echo git version 2.43.0",
		Expect:  "2.43.0",
		Match:   catalog.MatchSubstring,
	}))
	if r.Outcome != OutcomePassed {
		t.Fatalf("Expected passed, got %+v", r)
	}
}

func TestComponent_OutputMismatchIsDistinctFromFailure(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	r := v.Component(context.Background(), testComponent(&catalog.VerificationStep{
		Command: "echo v2.0.0",
		Expect:  "v1.0.0",
		Match:   catalog.MatchExact,
	}))
	if r.Outcome != OutcomeOutputMismatch {
		t.Fatalf("Expected output_mismatch, got %+v", r)
	}
	if !strings.Contains(r.Message, "v1.0.0") {
		t.Errorf("Expected message to mention the expectation, got %q", r.Message)
	}
}

func TestComponent_NonZeroExit(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	r := v.Component(context.Background(), testComponent(&catalog.VerificationStep{
		Command: "exit 3",
	}))
	if r.Outcome != OutcomeCommandFailed {
		t.Fatalf("Expected command_failed, got %+v", r)
	}
}

func TestComponent_TimeoutIsDistinctFromFailure(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	r := v.Component(context.Background(), testComponent(&catalog.VerificationStep{
		Command: "sleep 5",
		Timeout: 50 * time.Millisecond,
	}))
	if r.Outcome != OutcomeTimedOut {
		t.Fatalf("Expected timed_out, got %+v", r)
	}
	if !strings.Contains(r.Message, "timed out") {
		t.Errorf("Expected timeout message, got %q", r.Message)
	}
}

func TestComponent_ExitStatusOnlyIgnoresOutput(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	r := v.Component(context.Background(), testComponent(&catalog.VerificationStep{
		Command: "echo anything at all",
		Match:   catalog.MatchNone,
	}))
	if r.Outcome != OutcomePassed {
		t.Fatalf("Expected passed, got %+v", r)
	}
}

func TestComponent_NoStepDeclared(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	r := v.Component(context.Background(), testComponent(nil))
	if r.Outcome != OutcomeNotVerified {
		t.Fatalf("Expected not_verified, got %+v", r)
	}
	if !r.Passed() {
		t.Error("Expected not_verified to count as passed")
	}
}

func TestAll_SkipsComponentsThatDidNotInstall(t *testing.T) {
	v := New(zerolog.Nop(), nil)

	components := []catalog.Component{
		{ID: "a", Category: catalog.CategoryTool, InstallMethods: []string{"apt"},
			Verify: &catalog.VerificationStep{Command: "echo ok", Expect: "ok", Match: catalog.MatchExact}},
		{ID: "b", Category: catalog.CategoryTool, InstallMethods: []string{"apt"},
			Verify: &catalog.VerificationStep{Command: "exit 1"}},
	}
	installResults := []engine.InstallationResult{
		{ComponentID: "a", Success: true, Status: engine.StatusSucceeded},
		{ComponentID: "b", Status: engine.StatusFailed},
	}

	results := v.All(context.Background(), components, installResults)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Outcome != OutcomePassed {
		t.Errorf("Expected a to pass, got %+v", results[0])
	}
	if results[1].Outcome != OutcomeNotVerified {
		t.Errorf("Expected b to be skipped, got %+v", results[1])
	}
	if results[1].Message != "component was not installed" {
		t.Errorf("Expected skip reason, got %q", results[1].Message)
	}
}
