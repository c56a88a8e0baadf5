// Package store persists research runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hupe1980/deepresearch/search"
)

// AppName names the XDG data directory.
const AppName = "deepresearch"

// ErrRunNotFound is returned by Get for unknown run ids.
var ErrRunNotFound = errors.New("store: run not found")

// Status describes how a run ended.
type Status string

// Run statuses.
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is the persisted record of one pipeline execution.
type Run struct {
	ID         string          `json:"id"`
	Query      string          `json:"query"`
	Plan       []string        `json:"plan"`
	Sources    []search.Result `json:"sources"`
	Report     string          `json:"report"`
	Fallbacks  []string        `json:"fallbacks,omitempty"`
	Status     Status          `json:"status"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// DefaultDir returns $XDG_DATA_HOME/deepresearch.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Options configures the SQLite store.
type Options struct {
	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{EnableWAL: true}
}

// SQLiteStore stores runs in a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates deepresearch.db inside dir.
func Open(dir string, opts Options) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbPath := filepath.Join(dir, AppName+".db")

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		plan_json TEXT NOT NULL,
		sources_json TEXT NOT NULL,
		report TEXT NOT NULL,
		fallbacks_json TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Save inserts or replaces a run.
func (s *SQLiteStore) Save(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("store: run id must not be empty")
	}

	planJSON, err := json.Marshal(nonNil(run.Plan))
	if err != nil {
		return fmt.Errorf("failed to serialize plan: %w", err)
	}

	sourcesJSON, err := json.Marshal(nonNil(run.Sources))
	if err != nil {
		return fmt.Errorf("failed to serialize sources: %w", err)
	}

	fallbacksJSON, err := json.Marshal(nonNil(run.Fallbacks))
	if err != nil {
		return fmt.Errorf("failed to serialize fallbacks: %w", err)
	}

	query := `
	INSERT INTO runs (id, query, plan_json, sources_json, report, fallbacks_json, status, error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		query = excluded.query,
		plan_json = excluded.plan_json,
		sources_json = excluded.sources_json,
		report = excluded.report,
		fallbacks_json = excluded.fallbacks_json,
		status = excluded.status,
		error = excluded.error,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at
	`

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.Query, string(planJSON), string(sourcesJSON), run.Report, string(fallbacksJSON),
		string(run.Status), run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// Get returns the run with the given id or ErrRunNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, query, plan_json, sources_json, report, fallbacks_json, status, error, started_at, finished_at
	FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return run, err
}

// List returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, query, plan_json, sources_json, report, fallbacks_json, status, error, started_at, finished_at
	FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Delete removes a run. Deleting an unknown id returns ErrRunNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                                  Run
		planJSON, sourcesJSON, fallbacksJSON string
		status                               string
		errMsg                               sql.NullString
	)

	if err := sc.Scan(&run.ID, &run.Query, &planJSON, &sourcesJSON, &run.Report, &fallbacksJSON,
		&status, &errMsg, &run.StartedAt, &run.FinishedAt); err != nil {
		return Run{}, err
	}

	run.Status = Status(status)
	run.Error = errMsg.String

	if err := json.Unmarshal([]byte(planJSON), &run.Plan); err != nil {
		return Run{}, fmt.Errorf("failed to parse plan: %w", err)
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &run.Sources); err != nil {
		return Run{}, fmt.Errorf("failed to parse sources: %w", err)
	}
	if err := json.Unmarshal([]byte(fallbacksJSON), &run.Fallbacks); err != nil {
		return Run{}, fmt.Errorf("failed to parse fallbacks: %w", err)
	}

	return run, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
