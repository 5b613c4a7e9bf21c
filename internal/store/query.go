package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ginjaninja78/irs527-splitter/internal/stats"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

const runColumns = `run_id, input_file, started_at, finished_at, threshold, registry_size,
	lines_read, skipped, dropped,
	contribution_total, contribution_count, contribution_exceptions,
	expenditure_total, expenditure_count, expenditure_exceptions,
	transfer_total, transfer_count`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads the runs columns. Purposes, histogram and written counts are
// left empty.
func scanRun(row rowScanner) (Run, error) {
	var (
		run                   Run
		started, finished     string
		contribExc, expendExc int64
	)
	err := row.Scan(
		&run.RunID, &run.InputFile, &started, &finished, &run.Threshold, &run.RegistrySize,
		&run.LinesRead, &run.Skipped, &run.Dropped,
		&run.Summary.ContributionTotal, &run.Summary.ContributionCount, &contribExc,
		&run.Summary.ExpenditureTotal, &run.Summary.ExpenditureCount, &expendExc,
		&run.Summary.TransferTotal, &run.Summary.TransferCount,
	)
	if err != nil {
		return Run{}, err
	}

	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("bad started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("bad finished_at %q: %w", finished, err)
	}
	run.Summary.Exceptions = map[types.RecordType]int64{
		types.TypeContribution: contribExc,
		types.TypeExpenditure:  expendExc,
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first, without their
// per-purpose, histogram or written details.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// LoadRun returns one run with all of its details.
func (s *Store) LoadRun(ctx context.Context, runID string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	if run.Summary.Purposes, err = s.loadPurposes(ctx, runID); err != nil {
		return nil, err
	}
	if err := s.loadHistogram(ctx, runID, &run.Summary); err != nil {
		return nil, err
	}
	if run.Written, err = s.loadWritten(ctx, runID); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) loadPurposes(ctx context.Context, runID string) ([]stats.PurposeTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT purpose, amount, count FROM purposes WHERE run_id = ? ORDER BY amount DESC, purpose`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load purposes: %w", err)
	}
	defer rows.Close()

	purposes := []stats.PurposeTotal{}
	for rows.Next() {
		var p stats.PurposeTotal
		if err := rows.Scan(&p.Purpose, &p.Amount, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to read purpose: %w", err)
		}
		purposes = append(purposes, p)
	}
	return purposes, rows.Err()
}

func (s *Store) loadHistogram(ctx context.Context, runID string, sum *stats.Summary) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, count FROM histogram WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to load histogram: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bucket int
		var n int64
		if err := rows.Scan(&bucket, &n); err != nil {
			return fmt.Errorf("failed to read histogram bucket: %w", err)
		}
		i := stats.Bucket(bucket) / 10
		sum.Histogram[i] = n
	}
	return rows.Err()
}

func (s *Store) loadWritten(ctx context.Context, runID string) (map[types.RecordType]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_type, count FROM written WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load written counts: %w", err)
	}
	defer rows.Close()

	written := make(map[types.RecordType]int64)
	for rows.Next() {
		var rt string
		var n int64
		if err := rows.Scan(&rt, &n); err != nil {
			return nil, fmt.Errorf("failed to read written count: %w", err)
		}
		written[types.RecordType(rt)] = n
	}
	return written, rows.Err()
}
