package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// storedAction wraps a workflow action with a per-process insertion counter
// so position ties keep insertion order.
type storedAction struct {
	models.WorkflowAction
	Seq int64 `json:"seq"`
}

// Workflows returns all workflows, newest first.
func (p *Persistence) Workflows(_ context.Context) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflows, err := readAll[models.Workflow](p, collectionWorkflows)
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// WorkflowByID returns a workflow by its ID, including its ordered actions.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()

	workflow := &models.Workflow{}

	found, err := p.readInto(collectionWorkflows, id, workflow)

	p.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("WorkflowByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	workflow.Actions, err = p.WorkflowActions(ctx, id)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// ActiveWorkflowsByTrigger returns active workflows subscribed to the trigger type.
func (p *Persistence) ActiveWorkflowsByTrigger(_ context.Context, triggerType string) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflows, err := readAll[models.Workflow](p, collectionWorkflows)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.IsActive && workflow.TriggerType == triggerType {
			matched = append(matched, workflow)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}

// SaveWorkflow inserts or updates a workflow.
func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

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

	// Actions are stored in their own collection.
	stored := *workflow
	stored.Actions = nil

	return p.write(collectionWorkflows, workflow.ID, &stored)
}

// DeleteWorkflow removes a workflow and its actions. Queued runs are kept.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	found, err := p.remove(collectionWorkflows, id)
	if err != nil {
		return err
	}

	if !found {
		return persistence.NewStoreError("DeleteWorkflow", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	actions, err := readAll[storedAction](p, collectionActions)
	if err != nil {
		return err
	}

	for _, action := range actions {
		if action.WorkflowID == id {
			_, err = p.remove(collectionActions, action.ID)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// WorkflowActions returns the workflow's actions ordered by position, ties
// broken by insertion order.
func (p *Persistence) WorkflowActions(_ context.Context, workflowID string) ([]*models.WorkflowAction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stored, err := readAll[storedAction](p, collectionActions)
	if err != nil {
		return nil, err
	}

	matched := make([]*storedAction, 0)

	for _, action := range stored {
		if action.WorkflowID == workflowID {
			matched = append(matched, action)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Position != matched[j].Position {
			return matched[i].Position < matched[j].Position
		}

		return matched[i].Seq < matched[j].Seq
	})

	actions := make([]*models.WorkflowAction, 0, len(matched))
	for _, action := range matched {
		item := action.WorkflowAction
		actions = append(actions, &item)
	}

	return actions, nil
}

// SaveWorkflowAction inserts or updates a workflow action.
func (p *Persistence) SaveWorkflowAction(_ context.Context, action *models.WorkflowAction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	if action.ActionConfig == nil {
		action.ActionConfig = models.Document{}
	}

	seq := int64(0)

	if action.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate action ID: %w", err)
		}

		action.ID = id.String()
	} else {
		existing := &storedAction{}

		found, err := p.readInto(collectionActions, action.ID, existing)
		if err != nil {
			return err
		}

		if found {
			seq = existing.Seq
		}
	}

	if seq == 0 {
		seq = p.nextSeq()
	}

	return p.write(collectionActions, action.ID, &storedAction{WorkflowAction: *action, Seq: seq})
}

// DeleteWorkflowAction removes a single workflow action.
func (p *Persistence) DeleteWorkflowAction(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	found, err := p.remove(collectionActions, id)
	if err != nil {
		return err
	}

	if !found {
		return persistence.NewStoreError("DeleteWorkflowAction", "workflow_action", id, persistence.ErrWorkflowActionNotFound)
	}

	return nil
}
