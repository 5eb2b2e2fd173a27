package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/fnship/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Row Types
// =============================================================================

// runRow represents a run row in the database.
type runRow struct {
	ID           string `db:"id"`
	Status       string `db:"status"`
	ErrorMessage string `db:"error_message"`
	StartedAt    string `db:"started_at"`
	FinishedAt   string `db:"finished_at"`
}

// stepRow represents one step of a run, ordered by position.
type stepRow struct {
	RunID      string `db:"run_id"`
	Position   int    `db:"position"`
	StepID     string `db:"step_id"`
	Service    string `db:"service"`
	Phase      string `db:"phase"`
	Name       string `db:"name"`
	Status     string `db:"status"`
	Message    string `db:"message"`
	DurationMS int64  `db:"duration_ms"`
}

func runToRow(record *domain.RunRecord) runRow {
	return runRow{
		ID:           record.ID,
		Status:       string(record.Status),
		ErrorMessage: record.ErrorMessage,
		StartedAt:    record.StartedAt.UTC().Format(time.RFC3339Nano),
		FinishedAt:   record.FinishedAt.UTC().Format(time.RFC3339Nano),
	}
}

func rowToRun(row runRow) (*domain.RunRecord, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return nil, NewStoreError("rowToRun", row.ID, "invalid started_at", ErrInvalidData)
	}
	finishedAt, err := time.Parse(time.RFC3339Nano, row.FinishedAt)
	if err != nil {
		return nil, NewStoreError("rowToRun", row.ID, "invalid finished_at", ErrInvalidData)
	}
	return &domain.RunRecord{
		ID:           row.ID,
		Status:       domain.RunStatus(row.Status),
		ErrorMessage: row.ErrorMessage,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}, nil
}

func rowToStep(row stepRow) domain.Step {
	return domain.Step{
		ID:         row.StepID,
		Service:    row.Service,
		Phase:      domain.Phase(row.Phase),
		Name:       row.Name,
		Status:     domain.StepStatus(row.Status),
		Message:    row.Message,
		DurationMS: row.DurationMS,
	}
}

// =============================================================================
// Run Operations
// =============================================================================

// SaveRun persists a finished run and its steps atomically.
func (s *SQLiteStore) SaveRun(ctx context.Context, record *domain.RunRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("SaveRun", record.ID, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	row := runToRow(record)
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, status, error_message, started_at, finished_at)
		VALUES (:id, :status, :error_message, :started_at, :finished_at)`, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.id") {
			return NewStoreError("SaveRun", record.ID, "duplicate run id", ErrDuplicateID)
		}
		return NewStoreError("SaveRun", record.ID, "failed to insert run", err)
	}

	for i, step := range record.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_steps (run_id, position, step_id, service, phase, name, status, message, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, i, step.ID, step.Service, string(step.Phase), step.Name,
			string(step.Status), step.Message, step.DurationMS)
		if err != nil {
			return NewStoreError("SaveRun", record.ID, "failed to insert step", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("SaveRun", record.ID, "failed to commit", err)
	}
	return nil
}

// GetRun returns one run with its steps.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetRun", id, "not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetRun", id, "query failed", err)
	}

	record, err := rowToRun(row)
	if err != nil {
		return nil, err
	}
	record.Steps, err = s.GetRunSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRuns returns runs newest first, without steps.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]domain.RunRecord, error) {
	opts = opts.Normalize()

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListRuns", "", "query failed", err)
	}

	records := make([]domain.RunRecord, 0, len(rows))
	for _, row := range rows {
		record, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// DeleteRun removes a run; its steps cascade.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeleteRun", id, "delete failed", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("DeleteRun", id, "rows affected failed", err)
	}
	if affected == 0 {
		return NewStoreError("DeleteRun", id, "not found", ErrNotFound)
	}
	return nil
}

// GetRunSteps returns the steps of a run in execution order.
func (s *SQLiteStore) GetRunSteps(ctx context.Context, runID string) ([]domain.Step, error) {
	var rows []stepRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM run_steps
		WHERE run_id = ?
		ORDER BY position ASC`, runID)
	if err != nil {
		return nil, NewStoreError("GetRunSteps", runID, "query failed", err)
	}

	steps := make([]domain.Step, 0, len(rows))
	for _, row := range rows {
		steps = append(steps, rowToStep(row))
	}
	return steps, nil
}
