// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/quizcast/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		requester TEXT PRIMARY KEY,
		last_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		requester TEXT,
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		sent INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		excerpt TEXT,
		skips TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_requester ON runs(requester);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordSubmission stores at as the requester's last accepted submission.
func (s *SQLiteStorage) RecordSubmission(ctx context.Context, requester string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (requester, last_at) VALUES (?, ?)
		 ON CONFLICT(requester) DO UPDATE SET last_at = excluded.last_at`,
		requester, at.UTC(),
	)
	return err
}

// LastSubmission returns the requester's last accepted submission time, if any.
func (s *SQLiteStorage) LastSubmission(ctx context.Context, requester string) (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_at FROM submissions WHERE requester = ?`, requester,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// CreateRun inserts a run. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *models.Run) error {
	skipsJSON, err := json.Marshal(run.Skips)
	if err != nil {
		return fmt.Errorf("failed to marshal skips: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, requester, status, total, sent, failed, skipped, rejected, excerpt, skips, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Requester, string(run.Status), run.Total, run.Sent, run.Failed,
		run.Skipped, run.Rejected, run.Excerpt, string(skipsJSON), run.CreatedAt, run.FinishedAt,
	)
	return err
}

// UpdateRun stores the run's status and counters.
func (s *SQLiteStorage) UpdateRun(ctx context.Context, run *models.Run) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, total = ?, sent = ?, failed = ?, skipped = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.Status), run.Total, run.Sent, run.Failed, run.Skipped, run.FinishedAt, run.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

const runColumns = `id, source, requester, status, total, sent, failed, skipped, rejected, excerpt, skips, created_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var status string
	var requester, excerpt, skipsJSON sql.NullString
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.Source, &requester, &status, &run.Total, &run.Sent, &run.Failed,
		&run.Skipped, &run.Rejected, &excerpt, &skipsJSON, &run.CreatedAt, &finished); err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	run.Requester = requester.String
	run.Excerpt = excerpt.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	if skipsJSON.String != "" && skipsJSON.String != "null" {
		if err := json.Unmarshal([]byte(skipsJSON.String), &run.Skips); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skips: %w", err)
		}
	}
	return &run, nil
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first with offset and limit.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
