package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ── Run history ────────────────────────────────────────────
// Local audit trail: one row per endpoint per run, with the counters
// the engine reported. Lives in a small SQLite file next to the
// connector so runs can be inspected without touching MongoDB.

// RunRecord is one endpoint's outcome within a run.
type RunRecord struct {
	ID             string
	RunID          string
	Endpoint       string
	Fetched        int
	Transformed    int
	Stored         int
	DetailFailures int
	Status         string // "success" | "error"
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store persists run records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer — limit to single connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		fetched INTEGER NOT NULL DEFAULT 0,
		transformed INTEGER NOT NULL DEFAULT 0,
		stored INTEGER NOT NULL DEFAULT 0,
		detail_failures INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_sync_runs_run ON sync_runs(run_id)`)
	return err
}

// RecordRun inserts one run record. The ID is assigned here.
func (s *Store) RecordRun(rec *RunRecord) error {
	rec.ID = uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO sync_runs (id, run_id, endpoint, fetched, transformed, stored,
		 detail_failures, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Endpoint, rec.Fetched, rec.Transformed, rec.Stored,
		rec.DetailFailures, rec.Status, rec.Error, rec.StartedAt, rec.FinishedAt,
	)
	return err
}

// ListRuns returns the most recent records, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, endpoint, fetched, transformed, stored,
		 detail_failures, status, error, started_at, finished_at
		 FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Endpoint, &r.Fetched, &r.Transformed, &r.Stored,
			&r.DetailFailures, &r.Status, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
