package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, status, started_at, finished_at, inputs_json, output, filter, charts_written, resources, filtered, failed, error_message"

// BeginRun inserts run in the running state. ID and Output are required; a
// zero StartedAt is set to now.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	inputs := run.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, status, started_at, inputs_json, output, filter)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		StatusRunning,
		formatTime(run.StartedAt),
		string(inputsJSON),
		run.Output,
		nullableString(run.Filter),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFailure attaches a skipped item to the run.
func (s *Store) RecordFailure(ctx context.Context, runID string, failure Failure) error {
	if failure.CreatedAt.IsZero() {
		failure.CreatedAt = time.Now()
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO failures (run_id, stage, item, kind, message, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		failure.Stage,
		failure.Item,
		failure.Kind,
		nullableString(failure.Message),
		formatTime(failure.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	return nil
}

// FinishRun stores the outcome. A non-nil runErr marks the run failed.
func (s *Store) FinishRun(ctx context.Context, runID string, summary Summary, runErr error) error {
	status := StatusCompleted
	var message string
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, charts_written = ?, resources = ?,
             filtered = ?, failed = ?, error_message = ?
         WHERE id = ?`,
		status,
		formatTime(time.Now()),
		summary.ChartsWritten,
		summary.Resources,
		summary.Filtered,
		summary.Failed,
		nullableString(message),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by its full ID or a unique ID prefix. It returns nil
// when nothing matches.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// Failures returns the failures recorded for runID in insertion order.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT stage, item, kind, message, created_at FROM failures WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var (
			f          Failure
			message    sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&f.Stage, &f.Item, &f.Kind, &message, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Message = message.String
		if created, err := parseTimeString(createdRaw); err == nil {
			f.CreatedAt = created
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Prune deletes runs started before cutoff, with their failures, and returns
// the number of runs removed. Running entries are kept.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM runs WHERE started_at < ? AND status != ?`,
		formatTime(cutoff),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}
