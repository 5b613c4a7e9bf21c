// =============================================================================
// IRS 527 Splitter - Run Summary Store
// =============================================================================
//
// When summary_db is configured, every finished run is saved to a SQLite
// database so that runs over successive bulk files can be compared.
//
// TABLES:
//   runs        one row per run: counts and totals
//   purposes    per-purpose expenditure totals of a run
//   histogram   match score decile counts of a run
//   written     records written per record type of a run
//
// A run is saved in a single transaction. Saving the same run ID twice
// replaces the earlier rows.
//
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/irs527-splitter/internal/stats"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id                  TEXT PRIMARY KEY,
		input_file              TEXT NOT NULL,
		started_at              TEXT NOT NULL,
		finished_at             TEXT NOT NULL,
		threshold               INTEGER NOT NULL,
		registry_size           INTEGER NOT NULL,
		lines_read              INTEGER NOT NULL,
		skipped                 INTEGER NOT NULL,
		dropped                 INTEGER NOT NULL,
		contribution_total      REAL NOT NULL,
		contribution_count      INTEGER NOT NULL,
		contribution_exceptions INTEGER NOT NULL,
		expenditure_total       REAL NOT NULL,
		expenditure_count       INTEGER NOT NULL,
		expenditure_exceptions  INTEGER NOT NULL,
		transfer_total          REAL NOT NULL,
		transfer_count          INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS purposes (
		run_id  TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		purpose TEXT NOT NULL,
		amount  REAL NOT NULL,
		count   INTEGER NOT NULL,
		PRIMARY KEY (run_id, purpose)
	)`,
	`CREATE TABLE IF NOT EXISTS histogram (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		bucket INTEGER NOT NULL,
		count  INTEGER NOT NULL,
		PRIMARY KEY (run_id, bucket)
	)`,
	`CREATE TABLE IF NOT EXISTS written (
		run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		record_type TEXT NOT NULL,
		count       INTEGER NOT NULL,
		PRIMARY KEY (run_id, record_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
}

// Run is one finished run as stored.
type Run struct {
	RunID        string
	InputFile    string
	StartedAt    time.Time
	FinishedAt   time.Time
	Threshold    int
	RegistrySize int
	LinesRead    int
	Skipped      int
	Dropped      int
	Written      map[types.RecordType]int64
	Summary      stats.Summary
}

// Store persists run summaries in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures its tables exist.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open summary database: %w", err)
	}
	// One connection keeps the foreign_keys pragma in effect for every query.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create summary tables: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes run, replacing any earlier run with the same ID.
func (s *Store) SaveRun(ctx context.Context, run Run) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, run.RunID); err != nil {
		return fmt.Errorf("failed to replace run %s: %w", run.RunID, err)
	}

	sum := run.Summary
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		run_id, input_file, started_at, finished_at, threshold, registry_size,
		lines_read, skipped, dropped,
		contribution_total, contribution_count, contribution_exceptions,
		expenditure_total, expenditure_count, expenditure_exceptions,
		transfer_total, transfer_count
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.InputFile,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Threshold, run.RegistrySize,
		run.LinesRead, run.Skipped, run.Dropped,
		sum.ContributionTotal, sum.ContributionCount, sum.Exception(types.TypeContribution),
		sum.ExpenditureTotal, sum.ExpenditureCount, sum.Exception(types.TypeExpenditure),
		sum.TransferTotal, sum.TransferCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}

	purposeStmt, err := tx.PrepareContext(ctx, `INSERT INTO purposes (run_id, purpose, amount, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare purpose insert: %w", err)
	}
	defer purposeStmt.Close()
	for _, p := range sum.Purposes {
		if _, err = purposeStmt.ExecContext(ctx, run.RunID, p.Purpose, p.Amount, p.Count); err != nil {
			return fmt.Errorf("failed to insert purpose %q: %w", p.Purpose, err)
		}
	}

	for i, n := range sum.Histogram {
		if _, err = tx.ExecContext(ctx, `INSERT INTO histogram (run_id, bucket, count) VALUES (?, ?, ?)`,
			run.RunID, i*10, n); err != nil {
			return fmt.Errorf("failed to insert histogram bucket %d: %w", i*10, err)
		}
	}

	for rt, n := range run.Written {
		if _, err = tx.ExecContext(ctx, `INSERT INTO written (run_id, record_type, count) VALUES (?, ?, ?)`,
			run.RunID, string(rt), n); err != nil {
			return fmt.Errorf("failed to insert written count for %s: %w", rt, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.RunID, err)
	}
	return nil
}
