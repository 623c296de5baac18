package workflow

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func saveWorkflow(t *testing.T, store *file.Persistence, triggerType string, active bool) *models.Workflow {
	t.Helper()

	wf := &models.Workflow{
		Name:        "wf " + triggerType,
		TriggerType: triggerType,
		IsActive:    active,
	}
	require.NoError(t, store.SaveWorkflow(context.Background(), wf))

	return wf
}

func TestEnqueueTriggerFansOutToActiveWorkflows(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first := saveWorkflow(t, store, "appointment.created", true)
	second := saveWorkflow(t, store, "appointment.created", true)
	saveWorkflow(t, store, "appointment.created", false)
	saveWorkflow(t, store, "message.received", true)

	enqueuer := NewEnqueuer(store, testLogger())

	runs, err := enqueuer.EnqueueTrigger(ctx, "appointment.created", models.Document{"appointment_id": "a1"})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	workflowIDs := map[string]bool{}
	for _, run := range runs {
		workflowIDs[run.WorkflowID] = true

		assert.Equal(t, models.RunStatusQueued, run.Status)
		assert.Equal(t, "a1", run.TriggerPayload.StringOr("appointment_id", ""))
		assert.Equal(t, "appointment.created", run.TriggerPayload.StringOr("trigger_type", ""))
	}

	assert.True(t, workflowIDs[first.ID])
	assert.True(t, workflowIDs[second.ID])

	stored, err := store.Runs(ctx, persistence.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestEnqueueTriggerEmptyTypeIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	saveWorkflow(t, store, "appointment.created", true)

	enqueuer := NewEnqueuer(store, testLogger())

	runs, err := enqueuer.EnqueueTrigger(ctx, "", models.Document{"appointment_id": "a1"})
	require.NoError(t, err)
	assert.Empty(t, runs)

	stored, err := store.Runs(ctx, persistence.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEnqueueTriggerNoSubscribers(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	enqueuer := NewEnqueuer(store, testLogger())

	runs, err := enqueuer.EnqueueTrigger(ctx, "appointment.created", nil)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEnqueueTriggerPayloadIsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	saveWorkflow(t, store, "appointment.created", true)

	enqueuer := NewEnqueuer(store, testLogger())

	payload := models.Document{"appointment_id": "a1"}

	runs, err := enqueuer.EnqueueTrigger(ctx, "appointment.created", payload)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	// Mutating the caller's payload afterwards must not leak into the run.
	payload["appointment_id"] = "changed"

	stored, err := store.RunByID(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a1", stored.TriggerPayload.StringOr("appointment_id", ""))
}
