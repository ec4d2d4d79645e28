package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds the history store configuration.
type Config struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path"`

	MaxOpenConns    int           `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime,omitempty" yaml:"conn_max_lifetime,omitempty"`
}

// Store records installation runs in SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// NewStore creates a store for the given configuration. Call Open before use.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	return &Store{cfg: cfg}, nil
}

// Open connects to the database, enables WAL mode, and runs migrations.
func (s *Store) Open(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Connection-level setting, the DSN flag alone is not enough.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return s.migrate()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateRun inserts a new run record in the running state.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, profile, status, host, total, succeeded, failed, skipped, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Profile,
		run.Status,
		run.Host,
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Skipped,
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run terminal and stores its outcome counts.
func (s *Store) CompleteRun(ctx context.Context, id string, status RunStatus, succeeded, failed, skipped int) error {
	query := `
		UPDATE runs
		SET status = ?, succeeded = ?, failed = ?, skipped = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, succeeded, failed, skipped, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, profile, status, host, total, succeeded, failed, skipped, started_at, completed_at
		FROM runs
		WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Profile,
		&run.Status,
		&run.Host,
		&run.Total,
		&run.Succeeded,
		&run.Failed,
		&run.Skipped,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns lists runs newest-first with pagination.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	query := `
		SELECT id, profile, status, host, total, succeeded, failed, skipped, started_at, completed_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.Profile,
			&run.Status,
			&run.Host,
			&run.Total,
			&run.Succeeded,
			&run.Failed,
			&run.Skipped,
			&run.StartedAt,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// RecordComponents stores a run's component outcomes in one transaction.
func (s *Store) RecordComponents(ctx context.Context, records []ComponentRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO component_results (
			run_id, component_id, status, success, method, version,
			error_kind, error_message, attempts, duration_ms, verification
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, rec := range records {
		_, err := tx.ExecContext(ctx, query,
			rec.RunID,
			rec.ComponentID,
			rec.Status,
			rec.Success,
			rec.Method,
			rec.Version,
			rec.ErrorKind,
			rec.ErrorMessage,
			rec.Attempts,
			rec.DurationMS,
			rec.Verification,
		)
		if err != nil {
			return fmt.Errorf("failed to record component %s: %w", rec.ComponentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit component records: %w", err)
	}
	return nil
}

// ListComponents lists a run's component outcomes in insertion order.
func (s *Store) ListComponents(ctx context.Context, runID string) ([]*ComponentRecord, error) {
	query := `
		SELECT id, run_id, component_id, status, success, method, version,
			   error_kind, error_message, attempts, duration_ms, verification
		FROM component_results
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list component results: %w", err)
	}
	defer rows.Close()

	records := []*ComponentRecord{}
	for rows.Next() {
		rec := &ComponentRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.ComponentID,
			&rec.Status,
			&rec.Success,
			&rec.Method,
			&rec.Version,
			&rec.ErrorKind,
			&rec.ErrorMessage,
			&rec.Attempts,
			&rec.DurationMS,
			&rec.Verification,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component result: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component results: %w", err)
	}
	return records, nil
}

// LastInstall returns the most recent successful record for a component,
// if any run ever installed it.
func (s *Store) LastInstall(ctx context.Context, componentID string) (*ComponentRecord, error) {
	query := `
		SELECT id, run_id, component_id, status, success, method, version,
			   error_kind, error_message, attempts, duration_ms, verification
		FROM component_results
		WHERE component_id = ? AND success = 1
		ORDER BY id DESC
		LIMIT 1
	`

	rec := &ComponentRecord{}
	err := s.db.QueryRowContext(ctx, query, componentID).Scan(
		&rec.ID,
		&rec.RunID,
		&rec.ComponentID,
		&rec.Status,
		&rec.Success,
		&rec.Method,
		&rec.Version,
		&rec.ErrorKind,
		&rec.ErrorMessage,
		&rec.Attempts,
		&rec.DurationMS,
		&rec.Verification,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no successful install recorded for %s", componentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last install: %w", err)
	}
	return rec, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
