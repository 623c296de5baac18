// Package workflow implements the run lifecycle: fan-out of trigger events
// into queued runs, polling for due runs, and sequential action execution.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// Enqueuer fans a trigger event out into queued runs, one per active workflow
// subscribed to the trigger type. Enqueueing never executes anything.
type Enqueuer struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewEnqueuer creates a new Enqueuer.
func NewEnqueuer(p persistence.Persistence, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{
		persistence: p,
		logger:      logger.With("module", "enqueuer"),
	}
}

// EnqueueTrigger creates one queued run for every active workflow subscribed
// to triggerType and returns the created runs. An empty trigger type is a
// no-op. The stored payload is the event payload with the trigger type merged
// in, snapshotted at enqueue time.
func (e *Enqueuer) EnqueueTrigger(ctx context.Context, triggerType string, payload models.Document) ([]*models.WorkflowRun, error) {
	if triggerType == "" {
		return nil, nil
	}

	workflows, err := e.persistence.ActiveWorkflowsByTrigger(ctx, triggerType)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.WorkflowRun, 0, len(workflows))

	for _, wf := range workflows {
		run, err := e.enqueue(ctx, wf, triggerType, payload)
		if err != nil {
			return runs, err
		}

		runs = append(runs, run)
	}

	if len(runs) > 0 {
		e.logger.InfoContext(ctx, "Enqueued trigger",
			"trigger_type", triggerType,
			"runs", len(runs))
	}

	return runs, nil
}

func (e *Enqueuer) enqueue(ctx context.Context, wf *models.Workflow, triggerType string, payload models.Document) (*models.WorkflowRun, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	run := &models.WorkflowRun{
		ID:         id.String(),
		WorkflowID: wf.ID,
		TriggerPayload: payload.Merge(models.Document{
			"trigger_type": triggerType,
		}),
		Status:   models.RunStatusQueued,
		QueuedAt: time.Now().UTC(),
	}

	err = e.persistence.CreateRun(ctx, run)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "Queued workflow run",
		"run_id", run.ID,
		"workflow_id", wf.ID,
		"trigger_type", triggerType,
		"delay", wf.Delay())

	return run, nil
}
