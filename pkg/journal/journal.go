// SPDX-License-Identifier: Apache-2.0
// Package journal persists per-run action outcomes in SQLite for audit and
// reporting. The journal is write-only from the agent loop's perspective: it
// is never consulted for deduplication, which stays scoped to a single run.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded action outcome.
type Entry struct {
	RunID      string
	Action     string
	Portal     string
	Project    string
	Title      string
	Status     string
	Attempts   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	RunID  string
	Status string
	Limit  int
}

// Store is a SQLite-backed run journal.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal database at path and ensures schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle and ensures schema.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one action outcome.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_outcomes (
			run_id, action, portal, project, title, status, attempts, error_text, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RunID,
		entry.Action,
		entry.Portal,
		entry.Project,
		entry.Title,
		entry.Status,
		entry.Attempts,
		entry.Error,
		normalizeTime(entry.StartedAt),
		normalizeTime(entry.FinishedAt),
	)
	return err
}

// List returns entries matching the filter, oldest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT run_id, action, portal, project, title, status, attempts, error_text, started_at, finished_at
		FROM action_outcomes
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY started_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry    Entry
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&entry.RunID,
			&entry.Action,
			&entry.Portal,
			&entry.Project,
			&entry.Title,
			&entry.Status,
			&entry.Attempts,
			&entry.Error,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			entry.StartedAt = started.Time
		}
		if finished.Valid {
			entry.FinishedAt = finished.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS action_outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			action TEXT NOT NULL,
			portal TEXT,
			project TEXT,
			title TEXT,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_action_outcomes_run ON action_outcomes(run_id);
		CREATE INDEX IF NOT EXISTS idx_action_outcomes_status ON action_outcomes(status);
	`)
	return err
}

func normalizeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
