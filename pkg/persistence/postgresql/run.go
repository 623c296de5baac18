package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// RunRepository handles workflow run database operations. Runs are only ever
// inserted and transitioned forward; they are never deleted.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

const runColumns = `
	id
  , workflow_id
  , trigger_payload
  , status
  , queued_at
  , started_at
  , completed_at
  , result_payload
  , error_message
`

// CreateRun inserts a new queued run.
func (r *RunRepository) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	if run.Status == "" {
		run.Status = models.RunStatusQueued
	}

	if run.QueuedAt.IsZero() {
		run.QueuedAt = time.Now().UTC()
	}

	if run.TriggerPayload == nil {
		run.TriggerPayload = models.Document{}
	}

	payloadJSON, err := json.Marshal(run.TriggerPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	query := `
		INSERT INTO workflow_runs (id, workflow_id, trigger_payload, status, queued_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query, run.ID, run.WorkflowID, payloadJSON, run.Status, run.QueuedAt)
	if err != nil {
		return persistence.NewStoreError("CreateRun", "run", run.ID, err)
	}

	return nil
}

// RunByID returns a run by its ID.
func (r *RunRepository) RunByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("RunByID", "run", id, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

// Runs returns runs matching the filter, newest first.
func (r *RunRepository) Runs(ctx context.Context, filter persistence.RunFilter) ([]*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE TRUE`

	args := make([]any, 0, 3)

	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		query += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY queued_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanRuns(rows)
}

// DueRuns returns up to limit queued runs whose workflow delay deadline has
// passed, oldest first.
func (r *RunRepository) DueRuns(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowRun, error) {
	query := `
		SELECT
			r.id
		  , r.workflow_id
		  , r.trigger_payload
		  , r.status
		  , r.queued_at
		  , r.started_at
		  , r.completed_at
		  , r.result_payload
		  , r.error_message
		FROM workflow_runs r
		JOIN workflows w ON w.id = r.workflow_id
		WHERE r.status = 'queued'
		  AND r.queued_at + make_interval(mins => COALESCE(w.minutes_delay, 0)) <= $1
		ORDER BY r.queued_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due runs: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanRuns(rows)
}

// ClaimRun transitions a run from queued to running. The affected-row count
// of the conditional update decides whether this caller owns the run.
func (r *RunRepository) ClaimRun(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE workflow_runs
		SET status = 'running', started_at = $2
		WHERE id = $1 AND status = 'queued'
	`

	result, err := r.db.ExecContext(ctx, query, id, startedAt)
	if err != nil {
		return false, persistence.NewStoreError("ClaimRun", "run", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// CompleteRun finalizes a running run as completed with its action results.
func (r *RunRepository) CompleteRun(ctx context.Context, id string, completedAt time.Time, results []models.ActionResult) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal run results: %w", err)
	}

	query := `
		UPDATE workflow_runs
		SET status = 'completed', completed_at = $2, result_payload = $3
		WHERE id = $1 AND status = 'running'
	`

	result, err := r.db.ExecContext(ctx, query, id, completedAt, resultsJSON)
	if err != nil {
		return persistence.NewStoreError("CompleteRun", "run", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("CompleteRun", "run", id, persistence.ErrRunNotFound)
	}

	return nil
}

// FailRun finalizes a running run as failed with the error text. Partial
// action results are intentionally not persisted.
func (r *RunRepository) FailRun(ctx context.Context, id string, completedAt time.Time, errorMessage string) error {
	query := `
		UPDATE workflow_runs
		SET status = 'failed', completed_at = $2, error_message = $3
		WHERE id = $1 AND status = 'running'
	`

	result, err := r.db.ExecContext(ctx, query, id, completedAt, errorMessage)
	if err != nil {
		return persistence.NewStoreError("FailRun", "run", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("FailRun", "run", id, persistence.ErrRunNotFound)
	}

	return nil
}

// RunningRunsStartedBefore returns runs still in running state that started
// before the cutoff.
func (r *RunRepository) RunningRunsStartedBefore(ctx context.Context, cutoff time.Time) ([]*models.WorkflowRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM workflow_runs
		WHERE status = 'running' AND started_at < $1
		ORDER BY started_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query running runs: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanRuns(rows)
}

func scanRun(row rowScanner) (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{}

	var (
		payloadJSON  []byte
		resultsJSON  []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&payloadJSON,
		&run.Status,
		&run.QueuedAt,
		&run.StartedAt,
		&run.CompletedAt,
		&resultsJSON,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(payloadJSON, &run.TriggerPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger payload: %w", err)
	}

	if len(resultsJSON) > 0 {
		err = json.Unmarshal(resultsJSON, &run.ResultPayload)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal result payload: %w", err)
		}
	}

	run.ErrorMessage = errorMessage.String

	return run, nil
}

func scanRuns(rows *sql.Rows) ([]*models.WorkflowRun, error) {
	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}
