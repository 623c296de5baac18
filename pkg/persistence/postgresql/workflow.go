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

// WorkflowRepository handles workflow and workflow action database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , name
  , trigger_type
  , minutes_delay
  , is_active
  , created_at
  , updated_at
`

// Workflows returns all workflows, newest first.
func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanWorkflows(rows)
}

// WorkflowByID returns a workflow by its ID, including its ordered actions.
func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("WorkflowByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	workflow.Actions, err = r.WorkflowActions(ctx, workflow.ID)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// ActiveWorkflowsByTrigger returns active workflows subscribed to the trigger type.
func (r *WorkflowRepository) ActiveWorkflowsByTrigger(ctx context.Context, triggerType string) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE trigger_type = $1 AND is_active
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows by trigger: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanWorkflows(rows)
}

// SaveWorkflow inserts or updates a workflow.
func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	query := `
		INSERT INTO workflows (id, name, trigger_type, minutes_delay, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , trigger_type = EXCLUDED.trigger_type
		  , minutes_delay = EXCLUDED.minutes_delay
		  , is_active = EXCLUDED.is_active
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.TriggerType,
		workflow.MinutesDelay,
		workflow.IsActive,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", "workflow", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a workflow and its actions. Runs already queued for
// the workflow are kept.
func (r *WorkflowRepository) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("DeleteWorkflow", "workflow", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("DeleteWorkflow", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// WorkflowActions returns the workflow's actions ordered by position, ties
// broken by insertion order.
func (r *WorkflowRepository) WorkflowActions(ctx context.Context, workflowID string) ([]*models.WorkflowAction, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , action_type
		  , action_config
		  , position
		  , created_at
		FROM workflow_actions
		WHERE workflow_id = $1
		ORDER BY position ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow actions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	actions := make([]*models.WorkflowAction, 0)

	for rows.Next() {
		action := &models.WorkflowAction{}

		var configJSON []byte

		err := rows.Scan(
			&action.ID,
			&action.WorkflowID,
			&action.ActionType,
			&configJSON,
			&action.Position,
			&action.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow action: %w", err)
		}

		err = json.Unmarshal(configJSON, &action.ActionConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
		}

		actions = append(actions, action)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow actions: %w", err)
	}

	return actions, nil
}

// SaveWorkflowAction inserts or updates a workflow action.
func (r *WorkflowRepository) SaveWorkflowAction(ctx context.Context, action *models.WorkflowAction) error {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	if action.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate action ID: %w", err)
		}

		action.ID = id.String()
	}

	if action.ActionConfig == nil {
		action.ActionConfig = models.Document{}
	}

	configJSON, err := json.Marshal(action.ActionConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}

	query := `
		INSERT INTO workflow_actions (id, workflow_id, action_type, action_config, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			action_type = EXCLUDED.action_type
		  , action_config = EXCLUDED.action_config
		  , position = EXCLUDED.position
	`

	_, err = r.db.ExecContext(ctx, query,
		action.ID,
		action.WorkflowID,
		action.ActionType,
		configJSON,
		action.Position,
		action.CreatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflowAction", "workflow_action", action.ID, err)
	}

	return nil
}

// DeleteWorkflowAction removes a single workflow action.
func (r *WorkflowRepository) DeleteWorkflowAction(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_actions WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("DeleteWorkflowAction", "workflow_action", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("DeleteWorkflowAction", "workflow_action", id, persistence.ErrWorkflowActionNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.TriggerType,
		&workflow.MinutesDelay,
		&workflow.IsActive,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func scanWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}
