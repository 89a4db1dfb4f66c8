package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/nbsync/internal/reconcile"
)

// Status is the outcome of one sync.
type Status string

const (
	StatusComplete Status = "complete"
	StatusTimeout  Status = "timeout"
	StatusFailed   Status = "failed"
)

// Run is one journal row.
type Run struct {
	ID           string            `json:"id"`
	NotebookPath string            `json:"notebook_path"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Status       Status            `json:"status"`
	Ops          reconcile.Summary `json:"ops"`
	Commands     int               `json:"commands"`
	Error        string            `json:"error,omitempty"`
}

// ErrRunNotFound is returned by Get for an unknown id.
var ErrRunNotFound = errors.New("sync run not found")

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record inserts run, assigning an id if it has none, and returns the id.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	switch run.Status {
	case StatusComplete, StatusTimeout, StatusFailed:
	default:
		return "", fmt.Errorf("record run %s: invalid status %q", run.ID, run.Status)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, notebook_path, started_at, finished_at, status,
			op_equal, op_insert, op_delete, op_replace, op_copy,
			commands, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.NotebookPath,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		string(run.Status),
		run.Ops.Equal, run.Ops.Insert, run.Ops.Delete, run.Ops.Replace, run.Ops.CopyOutput,
		run.Commands, run.Error,
	)
	if err != nil {
		return "", fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListOptions filters List.
type ListOptions struct {
	// Path restricts results to one notebook when non-empty.
	Path string
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

// List returns runs newest first. Runs started at the same instant are
// ordered by id descending.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if opts.Path != "" {
		where = append(where, "notebook_path = ?")
		args = append(args, opts.Path)
	}
	query := selectRuns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

const selectRuns = `
	SELECT id, notebook_path, started_at, finished_at, status,
		op_equal, op_insert, op_delete, op_replace, op_copy,
		commands, error
	FROM sync_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		status            string
	)
	err := sc.Scan(
		&run.ID, &run.NotebookPath, &started, &finished, &status,
		&run.Ops.Equal, &run.Ops.Insert, &run.Ops.Delete, &run.Ops.Replace, &run.Ops.CopyOutput,
		&run.Commands, &run.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("run %s started_at: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("run %s finished_at: %w", run.ID, err)
	}
	return run, nil
}
