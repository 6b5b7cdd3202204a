// Package history keeps a ledger of moche runs and of what each run retrieved,
// updated, built and cleaned, in a SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Schema creates the ledger tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	source_dir  TEXT NOT NULL,
	build_dir   TEXT NOT NULL,
	actions     TEXT NOT NULL,
	dry_run     INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	at      INTEGER NOT NULL,
	kind    TEXT NOT NULL,
	subject TEXT NOT NULL,
	detail  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	SourceDir  string
	BuildDir   string
	Actions    []string
	DryRun     bool
	Status     string
	Error      string
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Event is one row of the events table.
type Event struct {
	At      time.Time
	Kind    string
	Subject string
	Detail  string
}

// Store is an open ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time

	mu    sync.Mutex
	runID string
	err   error
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records the start of run and makes it the target of Event.
func (s *Store) Begin(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.Status = StatusRunning
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, source_dir, build_dir, actions, dry_run, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.SourceDir, run.BuildDir, strings.Join(run.Actions, ","), run.DryRun, run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	s.mu.Lock()
	s.runID, s.err = run.ID, nil
	s.mu.Unlock()
	return nil
}

// Event records an event of the current run. Failures are kept and reported
// by Finish so that a broken ledger never interrupts a run.
func (s *Store) Event(kind, subject, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID == "" || s.err != nil {
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO events (run_id, at, kind, subject, detail) VALUES (?, ?, ?, ?, ?)`,
		s.runID, s.now().UnixMilli(), kind, subject, detail,
	)
	if err != nil {
		s.err = fmt.Errorf("failed to record %s event: %w", kind, err)
	}
}

// Finish marks the current run as succeeded, or failed with runErr.
func (s *Store) Finish(runErr error) error {
	s.mu.Lock()
	id, eventErr := s.runID, s.err
	s.runID, s.err = "", nil
	s.mu.Unlock()
	if id == "" {
		return nil
	}

	status, message := StatusSucceeded, ""
	if runErr != nil {
		status, message = StatusFailed, runErr.Error()
	}
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		s.now().UnixMilli(), status, message, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return eventErr
}

// Runs returns the most recent runs first, at most limit of them. A limit of
// zero or less returns every run.
func (s *Store) Runs(limit int) ([]*Run, error) {
	query := `SELECT id, started_at, finished_at, source_dir, build_dir, actions, dry_run, status, error
		FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
			actions  string
			errText  sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.SourceDir, &r.BuildDir, &actions, &r.DryRun, &r.Status, &errText); err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			r.FinishedAt = time.UnixMilli(finished.Int64)
		}
		if actions != "" {
			r.Actions = strings.Split(actions, ",")
		}
		r.Error = errText.String
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Events returns the events of run id in the order they happened. id may be
// a unique prefix of a run id.
func (s *Store) Events(id string) (string, []*Event, error) {
	full, err := s.resolve(id)
	if err != nil {
		return "", nil, err
	}
	rows, err := s.db.Query(`SELECT at, kind, subject, detail FROM events WHERE run_id = ? ORDER BY id`, full)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var at int64
		if err := rows.Scan(&at, &e.Kind, &e.Subject, &e.Detail); err != nil {
			return "", nil, fmt.Errorf("failed to read event: %w", err)
		}
		e.At = time.UnixMilli(at)
		events = append(events, &e)
	}
	return full, events, rows.Err()
}

func (s *Store) resolve(prefix string) (string, error) {
	rows, err := s.db.Query(`SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up run %s: %w", prefix, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no run matches %q", prefix)
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("run id %q is ambiguous", prefix)
}

// Prune deletes runs started before cutoff, with their events.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}
