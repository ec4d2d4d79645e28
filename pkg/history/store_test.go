package history

import (
	"context"
	"testing"
	"time"

	"github.com/toolforge/toolforge/pkg/engine"
	"github.com/toolforge/toolforge/pkg/verify"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return store
}

func TestStoreLifecycle(t *testing.T) {
	store := setupTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, table := range []string{"runs", "component_results"} {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	run := &Run{
		ID:        "run-1",
		Profile:   "ml-dev",
		Status:    RunStatusRunning,
		Total:     3,
		StartedAt: time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Profile != "ml-dev" || got.Status != RunStatusRunning {
		t.Errorf("unexpected run: %+v", got)
	}

	if err := store.CompleteRun(ctx, "run-1", RunStatusCompleted, 2, 0, 1); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusCompleted || got.Succeeded != 2 || got.Skipped != 1 {
		t.Errorf("unexpected completed run: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestCompleteRun_NotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.CompleteRun(context.Background(), "missing", RunStatusFailed, 0, 0, 0); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestRecordAndListComponents(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	run := &Run{ID: "run-1", Status: RunStatusRunning, StartedAt: time.Now()}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	records := []ComponentRecord{
		{RunID: "run-1", ComponentID: "tool.git", Status: "succeeded", Success: true, Method: "apt", Version: "2.43.0", Attempts: 1},
		{RunID: "run-1", ComponentID: "tool.x", Status: "failed", ErrorKind: "permanent", ErrorMessage: "no such package", Attempts: 2},
	}
	if err := store.RecordComponents(ctx, records); err != nil {
		t.Fatalf("failed to record components: %v", err)
	}

	got, err := store.ListComponents(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to list components: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ComponentID != "tool.git" || !got[0].Success {
		t.Errorf("unexpected first record: %+v", got[0])
	}
	if got[1].ErrorKind != "permanent" {
		t.Errorf("unexpected second record: %+v", got[1])
	}
}

func TestLastInstall(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i, id := range []string{"run-1", "run-2"} {
		if err := store.CreateRun(ctx, &Run{ID: id, Status: RunStatusCompleted, StartedAt: time.Now()}); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		version := "1.0.0"
		if i == 1 {
			version = "1.1.0"
		}
		err := store.RecordComponents(ctx, []ComponentRecord{
			{RunID: id, ComponentID: "tool.git", Status: "succeeded", Success: true, Method: "apt", Version: version},
		})
		if err != nil {
			t.Fatalf("failed to record components: %v", err)
		}
	}

	rec, err := store.LastInstall(ctx, "tool.git")
	if err != nil {
		t.Fatalf("failed to query last install: %v", err)
	}
	if rec.RunID != "run-2" || rec.Version != "1.1.0" {
		t.Errorf("expected most recent install, got %+v", rec)
	}

	if _, err := store.LastInstall(ctx, "tool.never"); err == nil {
		t.Error("expected error for component never installed")
	}
}

func TestRecordsFromResults(t *testing.T) {
	results := []engine.InstallationResult{
		{
			ComponentID: "a",
			Success:     true,
			Status:      engine.StatusSucceeded,
			Method:      "apt",
			Version:     "1.0.0",
			Attempts:    1,
			Duration:    1500 * time.Millisecond,
		},
		{
			ComponentID: "b",
			Status:      engine.StatusFailed,
			Error:       &engine.ErrorDetail{Kind: engine.ErrKindPermanent, Message: "boom"},
			Attempts:    2,
		},
	}
	verifications := []verify.Result{
		{ComponentID: "a", Outcome: verify.OutcomePassed},
	}

	records := RecordsFromResults("run-1", results, verifications)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].DurationMS != 1500 || records[0].Verification != "passed" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].ErrorKind != "permanent" || records[1].ErrorMessage != "boom" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
	if records[1].Verification != "" {
		t.Errorf("expected no verification verdict for failed component, got %q", records[1].Verification)
	}
}
