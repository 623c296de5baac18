package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/otelhelper"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/registry"
)

// Executor claims a due run and executes its workflow's actions sequentially
// against the run's trigger payload snapshot. One run is one unit of failure:
// an action error fails the run and records the error message, nothing else.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewExecutor creates a new Executor. A nil tracer disables tracing.
func NewExecutor(p persistence.Persistence, reg *registry.Registry, tracer trace.Tracer, logger *slog.Logger) *Executor {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("opsdesk")
	}

	return &Executor{
		persistence: p,
		registry:    reg,
		tracer:      tracer,
		logger:      logger.With("module", "executor"),
	}
}

// ExecuteRun claims and executes a single queued run. Losing the claim is a
// normal outcome and returns nil. Action failures finalize the run as failed
// and also return nil; only storage errors propagate to the caller.
func (e *Executor) ExecuteRun(ctx context.Context, run *models.WorkflowRun) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute_run",
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.WorkflowIDKey, run.WorkflowID),
	)
	defer span.End()

	logger := e.logger.With("run_id", run.ID, "workflow_id", run.WorkflowID)

	claimed, err := e.persistence.ClaimRun(ctx, run.ID, time.Now().UTC())
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	if !claimed {
		logger.DebugContext(ctx, "Run already claimed elsewhere, skipping")

		return nil
	}

	actions, err := e.persistence.WorkflowActions(ctx, run.WorkflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return e.finalizeFailure(ctx, logger, run, err)
	}

	results := make([]models.ActionResult, 0, len(actions))

	for _, action := range actions {
		result, err := e.executeAction(ctx, action, run.TriggerPayload)
		if err != nil {
			otelhelper.SetError(span, err,
				attribute.String(otelhelper.ActionTypeKey, action.ActionType))

			return e.finalizeFailure(ctx, logger, run, err)
		}

		results = append(results, models.ActionResult{
			ActionType: action.ActionType,
			Result:     result,
		})
	}

	err = e.persistence.CompleteRun(ctx, run.ID, time.Now().UTC(), results)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	logger.InfoContext(ctx, "Run completed", "actions", len(results))

	return nil
}

// executeAction runs one workflow step. An unregistered action type yields a
// skip result instead of an error so that unknown steps never fail a run.
func (e *Executor) executeAction(ctx context.Context, workflowAction *models.WorkflowAction, payload models.Document) (models.Document, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute_action",
		attribute.String(otelhelper.ActionIDKey, workflowAction.ID),
		attribute.String(otelhelper.ActionTypeKey, workflowAction.ActionType),
	)
	defer span.End()

	action, err := e.registry.CreateAction(workflowAction.ActionType, workflowAction.ActionConfig)
	if err != nil {
		if errors.Is(err, registry.ErrActionNotRegistered) {
			e.logger.WarnContext(ctx, "Action type not implemented, skipping",
				"action_type", workflowAction.ActionType)

			return registry.NotImplementedResult(workflowAction.ActionType), nil
		}

		return nil, err
	}

	return action.Execute(ctx, payload)
}

// finalizeFailure records the run as failed with the error message. Partial
// results are discarded; failed runs carry no result payload. The storage
// error from FailRun, if any, is what propagates.
func (e *Executor) finalizeFailure(ctx context.Context, logger *slog.Logger, run *models.WorkflowRun, cause error) error {
	logger.ErrorContext(ctx, "Run failed", "error", cause)

	return e.persistence.FailRun(ctx, run.ID, time.Now().UTC(), cause.Error())
}
