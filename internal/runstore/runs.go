package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"emoroute/internal/emotion"
	"emoroute/internal/labels"
	"emoroute/internal/materialize"
	"emoroute/internal/routing"
	"emoroute/internal/services"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrAmbiguousID is returned when a run id prefix matches more than one run.
var ErrAmbiguousID = errors.New("ambiguous run id")

// Run is one recorded pipeline invocation.
type Run struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	Status       string    `json:"status"`
	DryRun       bool      `json:"dry_run"`
	Datasets     []string  `json:"datasets"`
	Discovered   int       `json:"discovered"`
	Resolved     int       `json:"resolved"`
	Excluded     int       `json:"excluded"`
	Unresolved   int       `json:"unresolved"`
	ConfigErrors int       `json:"config_errors"`
	Copied       int       `json:"copied"`
	Transcoded   int       `json:"transcoded"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	BytesWritten int64     `json:"bytes_written"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// DatasetSummary is the stored summary row for one dataset of a run.
type DatasetSummary struct {
	Dataset       string                   `json:"dataset"`
	Name          string                   `json:"name"`
	Discovered    int                      `json:"discovered"`
	Resolved      int                      `json:"resolved"`
	Excluded      int                      `json:"excluded"`
	Unresolved    int                      `json:"unresolved"`
	ConfigErrors  int                      `json:"config_errors"`
	Expected      int                      `json:"expected"`
	CountMismatch bool                     `json:"count_mismatch"`
	Categories    map[emotion.Category]int `json:"categories"`
	InvalidReason string                   `json:"invalid_reason,omitempty"`
}

// Completion carries the data recorded when a run ends.
type Completion struct {
	Totals routing.Summary
	Report *materialize.Report
	Err    error
}

// CreateRun inserts a new running row and returns it.
func (s *Store) CreateRun(ctx context.Context, datasets []string, dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    services.StatusRunning,
		DryRun:    dryRun,
		Datasets:  append([]string(nil), datasets...),
	}
	err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, status, dry_run, datasets) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.Status, boolToInt(dryRun), strings.Join(datasets, ","),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordPlan stores per-dataset summaries and every decision of plan.
func (s *Store) RecordPlan(ctx context.Context, runID string, plan *routing.Plan) error {
	if plan == nil {
		return nil
	}
	return withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin plan tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		summaryStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO dataset_summaries
			(run_id, dataset, name, discovered, resolved, excluded, unresolved, config_errors, expected, count_mismatch, categories_json, invalid_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare summary insert: %w", err)
		}
		defer summaryStmt.Close()

		decisionStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO decisions
			(run_id, dataset, source, status, category, intermediate, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare decision insert: %w", err)
		}
		defer decisionStmt.Close()

		for _, ds := range plan.Datasets {
			categories, err := json.Marshal(ds.Summary.Categories)
			if err != nil {
				return fmt.Errorf("encode categories: %w", err)
			}
			sum := ds.Summary
			if _, err := summaryStmt.ExecContext(ctx, runID, ds.Dataset, ds.Name, sum.Discovered, sum.Resolved, sum.Excluded,
				sum.Unresolved, sum.ConfigErrors, sum.Expected, boolToInt(sum.CountMismatch), string(categories), ""); err != nil {
				return fmt.Errorf("insert summary %s: %w", ds.Dataset, err)
			}
			for _, d := range ds.Decisions {
				if _, err := decisionStmt.ExecContext(ctx, runID, d.Dataset, d.Source, string(d.Status),
					string(d.Category), string(d.Intermediate), d.Detail); err != nil {
					return fmt.Errorf("insert decision %s: %w", d.Source, err)
				}
			}
		}
		for _, invalid := range plan.Invalid {
			if _, err := summaryStmt.ExecContext(ctx, runID, invalid.Dataset, "", 0, 0, 0, 0, 0, 0, 0, "{}", invalid.Reason); err != nil {
				return fmt.Errorf("insert invalid dataset %s: %w", invalid.Dataset, err)
			}
		}
		return tx.Commit()
	})
}

// FinishRun stamps the final status, totals, and materialization counts.
func (s *Store) FinishRun(ctx context.Context, runID string, done Completion) error {
	status := services.FailureStatus(done.Err)
	errMsg := ""
	if done.Err != nil {
		errMsg = done.Err.Error()
	}
	var report materialize.Report
	if done.Report != nil {
		report = *done.Report
	}
	err := s.exec(ctx, `UPDATE runs SET
			finished_at = ?, status = ?, discovered = ?, resolved = ?, excluded = ?, unresolved = ?, config_errors = ?,
			copied = ?, transcoded = ?, skipped = ?, failed = ?, bytes_written = ?, error_message = ?
		WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), status,
		done.Totals.Discovered, done.Totals.Resolved, done.Totals.Excluded, done.Totals.Unresolved, done.Totals.ConfigErrors,
		report.Copied, report.Transcoded, report.Skipped, report.Failed, report.Bytes, errMsg,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

const runColumns = `id, started_at, COALESCE(finished_at, ''), status, dry_run, datasets, discovered, resolved, excluded,
	unresolved, config_errors, copied, transcoded, skipped, failed, bytes_written, error_message`

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
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
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id equals or starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty run id", services.ErrValidation)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? ORDER BY id LIMIT 2`,
		len(id), id)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: run %s", services.ErrNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// DatasetSummaries returns the stored summaries of runID ordered by dataset.
func (s *Store) DatasetSummaries(ctx context.Context, runID string) ([]DatasetSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dataset, name, discovered, resolved, excluded, unresolved, config_errors,
		expected, count_mismatch, categories_json, invalid_reason
		FROM dataset_summaries WHERE run_id = ? ORDER BY dataset`, runID)
	if err != nil {
		return nil, fmt.Errorf("list dataset summaries: %w", err)
	}
	defer rows.Close()

	var out []DatasetSummary
	for rows.Next() {
		var (
			sum        DatasetSummary
			mismatch   int
			categories string
		)
		if err := rows.Scan(&sum.Dataset, &sum.Name, &sum.Discovered, &sum.Resolved, &sum.Excluded, &sum.Unresolved,
			&sum.ConfigErrors, &sum.Expected, &mismatch, &categories, &sum.InvalidReason); err != nil {
			return nil, fmt.Errorf("scan dataset summary: %w", err)
		}
		sum.CountMismatch = mismatch != 0
		sum.Categories = map[emotion.Category]int{}
		if err := json.Unmarshal([]byte(categories), &sum.Categories); err != nil {
			return nil, fmt.Errorf("decode categories for %s: %w", sum.Dataset, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Decisions returns the decisions of runID, optionally filtered by status,
// ordered by dataset then source.
func (s *Store) Decisions(ctx context.Context, runID string, statuses ...labels.Status) ([]routing.Decision, error) {
	query := `SELECT dataset, source, status, category, intermediate, detail FROM decisions WHERE run_id = ?`
	args := []any{runID}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY dataset, source`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []routing.Decision
	for rows.Next() {
		var d routing.Decision
		var status, category, intermediate string
		if err := rows.Scan(&d.Dataset, &d.Source, &status, &category, &intermediate, &d.Detail); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Status = labels.Status(status)
		d.Category = emotion.Category(category)
		d.Intermediate = emotion.Intermediate(intermediate)
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run               Run
		started, finished string
		dryRun            int
		datasets          string
	)
	if err := row.Scan(&run.ID, &started, &finished, &run.Status, &dryRun, &datasets, &run.Discovered, &run.Resolved,
		&run.Excluded, &run.Unresolved, &run.ConfigErrors, &run.Copied, &run.Transcoded, &run.Skipped, &run.Failed,
		&run.BytesWritten, &run.ErrorMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: run", services.ErrNotFound)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.DryRun = dryRun != 0
	if datasets != "" {
		run.Datasets = strings.Split(datasets, ",")
	}
	return &run, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
