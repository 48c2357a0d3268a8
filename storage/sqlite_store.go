package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

var ErrRunNotFound = errors.New("run not found")

// timestampLayout has a fixed width so stored values sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one upload attempt as kept in the local history.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	SourceFile   string
	SheetID      string
	SheetName    string
	Mode         string
	Strategy     string
	State        string
	RowsRead     int
	RowsCleaned  int
	RowsCleared  int
	RowsUploaded int
	Error        string
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	source_file TEXT NOT NULL,
	sheet_id TEXT NOT NULL DEFAULT '',
	sheet_name TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL,
	strategy TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL,
	rows_read INTEGER NOT NULL DEFAULT 0 CHECK(rows_read >= 0),
	rows_cleaned INTEGER NOT NULL DEFAULT 0 CHECK(rows_cleaned >= 0),
	rows_cleared INTEGER NOT NULL DEFAULT 0 CHECK(rows_cleared >= 0),
	rows_uploaded INTEGER NOT NULL DEFAULT 0 CHECK(rows_uploaded >= 0),
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordRun stores run, replacing an earlier record with the same ID.
func (s *SQLiteStore) RecordRun(run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}

	const insertStmt = `
INSERT OR REPLACE INTO runs (
	id,
	started_at,
	finished_at,
	source_file,
	sheet_id,
	sheet_name,
	mode,
	strategy,
	state,
	rows_read,
	rows_cleaned,
	rows_cleared,
	rows_uploaded,
	error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	_, err := s.db.Exec(
		insertStmt,
		run.ID,
		run.StartedAt.UTC().Format(timestampLayout),
		run.FinishedAt.UTC().Format(timestampLayout),
		run.SourceFile,
		run.SheetID,
		run.SheetName,
		run.Mode,
		run.Strategy,
		run.State,
		run.RowsRead,
		run.RowsCleaned,
		run.RowsCleared,
		run.RowsUploaded,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const selectRuns = `
SELECT
	id,
	started_at,
	finished_at,
	source_file,
	sheet_id,
	sheet_name,
	mode,
	strategy,
	state,
	rows_read,
	rows_cleaned,
	rows_cleared,
	rows_uploaded,
	error
FROM runs`

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(limit int) ([]Run, error) {
	query := selectRuns + "\nORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query+";", args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, 32)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteStore) GetRun(id string) (Run, error) {
	row := s.db.QueryRow(selectRuns+"\nWHERE id = ?;", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

func (s *SQLiteStore) DeleteAllRuns() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs;`)
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read affected rows: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw string
	)
	err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&run.SourceFile,
		&run.SheetID,
		&run.SheetName,
		&run.Mode,
		&run.Strategy,
		&run.State,
		&run.RowsRead,
		&run.RowsCleaned,
		&run.RowsCleared,
		&run.RowsUploaded,
		&run.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.StartedAt, err = time.Parse(timestampLayout, startedRaw)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", startedRaw, err)
	}
	run.FinishedAt, err = time.Parse(timestampLayout, finishedRaw)
	if err != nil {
		return Run{}, fmt.Errorf("parse finished_at %q: %w", finishedRaw, err)
	}
	return run, nil
}
