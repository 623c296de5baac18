package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestSaveAndFetchWorkflow(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	wf := &models.Workflow{
		Name:        "appointment reminder",
		TriggerType: "appointment.created",
		IsActive:    true,
	}

	require.NoError(t, p.SaveWorkflow(ctx, wf))
	require.NotEmpty(t, wf.ID)

	fetched, err := p.WorkflowByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "appointment reminder", fetched.Name)
	assert.Equal(t, "appointment.created", fetched.TriggerType)
	assert.True(t, fetched.IsActive)
	assert.Empty(t, fetched.Actions)
}

func TestWorkflowByIDNotFound(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.WorkflowByID(context.Background(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestActiveWorkflowsByTrigger(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	for _, wf := range []*models.Workflow{
		{Name: "active one", TriggerType: "appointment.created", IsActive: true},
		{Name: "active two", TriggerType: "appointment.created", IsActive: true},
		{Name: "inactive", TriggerType: "appointment.created", IsActive: false},
		{Name: "other trigger", TriggerType: "message.received", IsActive: true},
	} {
		require.NoError(t, p.SaveWorkflow(ctx, wf))
	}

	matched, err := p.ActiveWorkflowsByTrigger(ctx, "appointment.created")
	require.NoError(t, err)
	require.Len(t, matched, 2)

	for _, wf := range matched {
		assert.True(t, wf.IsActive)
		assert.Equal(t, "appointment.created", wf.TriggerType)
	}
}

func TestWorkflowActionsOrdering(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	wf := &models.Workflow{Name: "ordered", TriggerType: "t", IsActive: true}
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	// Insert out of position order, with a position tie between the two
	// notification steps.
	actions := []*models.WorkflowAction{
		{WorkflowID: wf.ID, ActionType: "update_status", Position: 2},
		{WorkflowID: wf.ID, ActionType: "send_notification", Position: 1},
		{WorkflowID: wf.ID, ActionType: "send_notification", Position: 1},
	}
	for _, action := range actions {
		require.NoError(t, p.SaveWorkflowAction(ctx, action))
	}

	ordered, err := p.WorkflowActions(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, ordered, 3)

	assert.Equal(t, "send_notification", ordered[0].ActionType)
	assert.Equal(t, actions[1].ID, ordered[0].ID) // tie kept insertion order
	assert.Equal(t, actions[2].ID, ordered[1].ID)
	assert.Equal(t, "update_status", ordered[2].ActionType)
}

func TestDeleteWorkflowRemovesActions(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	wf := &models.Workflow{Name: "doomed", TriggerType: "t", IsActive: true}
	require.NoError(t, p.SaveWorkflow(ctx, wf))
	require.NoError(t, p.SaveWorkflowAction(ctx, &models.WorkflowAction{
		WorkflowID: wf.ID,
		ActionType: "send_notification",
	}))

	require.NoError(t, p.DeleteWorkflow(ctx, wf.ID))

	_, err := p.WorkflowByID(ctx, wf.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	actions, err := p.WorkflowActions(ctx, wf.ID)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestDeleteWorkflowKeepsQueuedRuns(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	wf := &models.Workflow{Name: "doomed", TriggerType: "t", IsActive: true}
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	run := &models.WorkflowRun{WorkflowID: wf.ID}
	require.NoError(t, p.CreateRun(ctx, run))

	require.NoError(t, p.DeleteWorkflow(ctx, wf.ID))

	kept, err := p.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusQueued, kept.Status)

	// The orphaned run becomes due with no delay.
	due, err := p.DueRuns(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, run.ID, due[0].ID)
}
