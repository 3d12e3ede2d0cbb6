// Package storage keeps the run history in SQLite (modernc.org/sqlite, no
// CGO). Only load attempts are recorded; game state is never persisted.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vovakirdan/tui-player/internal/config"
)

// Run origins.
const (
	OriginLocal  = "local"
	OriginURL    = "url"
	OriginSample = "sample"
)

// Run outcomes.
const (
	OutcomeStarted  = "started"  // runCode delivered to a ready sandbox
	OutcomeRejected = "rejected" // input refused before boot
	OutcomeFailed   = "failed"   // fetch or read failed
	OutcomeTimeout  = "timeout"  // sandbox never became ready
)

// Store manages the SQLite database connection for the run history.
type Store struct {
	db *sql.DB
}

// Run is one attempt to load a game into a sandbox.
type Run struct {
	ID        int64
	SessionID string
	Origin    string
	Source    string // file name, URL or sample path
	Outcome   string
	Detail    string // error text for unsuccessful runs
	CreatedAt time.Time
}

// OriginStats aggregates runs per origin.
type OriginStats struct {
	Origin  string
	Runs    int
	Started int
	LastRun time.Time
}

// Open opens the history database at dbPath, creating the file, its
// directory and the schema on first use.
func Open(dbPath string) (*Store, error) {
	dbPath, err := config.ExpandHome(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot open %s: %w", dbPath, err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			origin TEXT NOT NULL,
			source TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun records a run attempt.
// Returns the ID of the inserted record.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (session_id, origin, source, outcome, detail) VALUES (?, ?, ?, ?, ?)",
		run.SessionID, run.Origin, run.Source, run.Outcome, run.Detail,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// RecentRuns retrieves the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, origin, source, outcome, detail, created_at
		 FROM runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	return scanRuns(rows)
}

// SessionRuns retrieves every run made in one sandbox session, oldest first.
func (s *Store) SessionRuns(ctx context.Context, sessionID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, origin, source, outcome, detail, created_at
		 FROM runs
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query session runs: %w", err)
	}
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt any
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Origin, &r.Source, &r.Outcome, &r.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// Stats retrieves per-origin aggregates for all recorded runs.
func (s *Store) Stats(ctx context.Context) (map[string]*OriginStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT origin, COUNT(*), SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), MAX(created_at)
		 FROM runs
		 GROUP BY origin`,
		OutcomeStarted,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*OriginStats)
	for rows.Next() {
		var st OriginStats
		var lastRun any
		if err := rows.Scan(&st.Origin, &st.Runs, &st.Started, &lastRun); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		st.LastRun = parseTime(lastRun)
		stats[st.Origin] = &st
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

// LastRun returns the most recent run, or nil if none exist.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	var r Run
	var createdAt any
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, origin, source, outcome, detail, created_at
		 FROM runs
		 ORDER BY id DESC
		 LIMIT 1`,
	).Scan(&r.ID, &r.SessionID, &r.Origin, &r.Source, &r.Outcome, &r.Detail, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query last run: %w", err)
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// ClearRuns deletes the whole history.
func (s *Store) ClearRuns(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs"); err != nil {
		return fmt.Errorf("storage: cannot clear runs: %w", err)
	}
	return nil
}

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
