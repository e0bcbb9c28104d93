package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// ErrRunNotFound is returned by GetRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite state store instance.
// A nil logger discards log output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewSQLiteStoreWithDB wraps an already opened database. Migrations are not run.
func NewSQLiteStoreWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens a connection to the SQLite database, creating its directory
// if needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return s.open(path, dsn)
}

// OpenReadOnly opens an existing database without creating, migrating or
// writing to it.
func (s *SQLiteStore) OpenReadOnly(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return s.open(path, "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
}

func (s *SQLiteStore) open(path, dsn string) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// OpenAndMigrate opens the database at path and applies pending migrations.
func OpenAndMigrate(path string, logger *slog.Logger) (*SQLiteStore, error) {
	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a finished run and its stage results.
func (s *SQLiteStore) RecordRun(ctx context.Context, projectDir string, report *bootstrap.Report) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	run := RunFromReport(projectDir, report)
	s.logger.Debug("recording run", slog.String("id", run.ID), slog.String("status", string(run.Status)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, project_dir, interpreter, environment_python, environment_created, status, error, started_at, duration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProjectDir, run.Interpreter, run.EnvironmentPython, run.EnvironmentCreated,
		string(run.Status), run.Error, run.StartedAt.Format(timeLayout), run.Duration,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, sr := range run.Stages {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_stages (run_id, position, stage, status, detail) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, sr.Stage.String(), string(sr.Status), sr.Detail,
		)
		if err != nil {
			return fmt.Errorf("failed to insert stage %s: %w", sr.Stage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run. Stages are not loaded.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_dir, interpreter, environment_python, environment_created, status, error, started_at, duration
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves a run with its stages. id may be a unique prefix and is
// compared literally.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty run id", ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_dir, interpreter, environment_python, environment_created, status, error, started_at, duration
		 FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("run id %q is ambiguous", id)
	}

	run := matches[0]
	run.Stages, err = s.stages(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) stages(ctx context.Context, runID string) ([]bootstrap.StageResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, detail FROM run_stages WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stages []bootstrap.StageResult
	for rows.Next() {
		var name, status, detail string
		if err := rows.Scan(&name, &status, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stage, err := bootstrap.ParseStage(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, bootstrap.StageResult{Stage: stage, Status: bootstrap.Status(status), Detail: detail})
	}
	return stages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		status    string
		startedAt string
	)
	if err := row.Scan(&run.ID, &run.ProjectDir, &run.Interpreter, &run.EnvironmentPython,
		&run.EnvironmentCreated, &status, &run.Error, &startedAt, &run.Duration); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Status = RunStatus(status)

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at for run %s: %w", run.ID, err)
	}
	run.StartedAt = t
	return &run, nil
}
