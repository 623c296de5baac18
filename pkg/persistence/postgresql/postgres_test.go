//go:build integration
// +build integration

package postgresql

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

// setupTestDB starts (or reuses) a PostgreSQL container and returns a
// migrated persistence with empty tables.
func setupTestDB(t *testing.T) (*Persistence, context.Context) {
	t.Helper()

	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("opsdesk_test"),
			postgres.WithUsername("opsdesk"),
			postgres.WithPassword("opsdesk"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	cleanupDB(t, databaseURL)

	return p, ctx
}

func cleanupDB(t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(context.Background(), `
		TRUNCATE TABLE
			workflow_runs, workflow_actions, workflows,
			sla_incidents, sla_targets,
			appointments, messages, conversations,
			notifications, user_channel_preferences
		CASCADE
	`)
	require.NoError(t, err)
}

func saveWorkflowFixture(t *testing.T, ctx context.Context, p *Persistence, minutesDelay *int) *models.Workflow {
	t.Helper()

	wf := &models.Workflow{
		Name:         "reminder",
		TriggerType:  "appointment.created",
		MinutesDelay: minutesDelay,
		IsActive:     true,
	}
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	return wf
}

func TestHealthCheck(t *testing.T) {
	p, ctx := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestWorkflowRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := saveWorkflowFixture(t, ctx, p, nil)
	require.NotEmpty(t, wf.ID)

	fetched, err := p.WorkflowByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.Name, fetched.Name)
	assert.Equal(t, wf.TriggerType, fetched.TriggerType)
	assert.Nil(t, fetched.MinutesDelay)
	assert.True(t, fetched.IsActive)

	_, err = p.WorkflowByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestActiveWorkflowsByTrigger(t *testing.T) {
	p, ctx := setupTestDB(t)

	active := saveWorkflowFixture(t, ctx, p, nil)

	inactive := &models.Workflow{
		Name:        "disabled",
		TriggerType: "appointment.created",
		IsActive:    false,
	}
	require.NoError(t, p.SaveWorkflow(ctx, inactive))

	other := &models.Workflow{
		Name:        "chat follow-up",
		TriggerType: "message.received",
		IsActive:    true,
	}
	require.NoError(t, p.SaveWorkflow(ctx, other))

	workflows, err := p.ActiveWorkflowsByTrigger(ctx, "appointment.created")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, active.ID, workflows[0].ID)
}

func TestWorkflowActionsOrdering(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := saveWorkflowFixture(t, ctx, p, nil)

	second := &models.WorkflowAction{
		WorkflowID:   wf.ID,
		ActionType:   "send_notification",
		ActionConfig: models.Document{"title": "late"},
		Position:     2,
	}
	first := &models.WorkflowAction{
		WorkflowID:   wf.ID,
		ActionType:   "update_status",
		ActionConfig: models.Document{"next_status": "confirmed"},
		Position:     1,
	}
	require.NoError(t, p.SaveWorkflowAction(ctx, second))
	require.NoError(t, p.SaveWorkflowAction(ctx, first))

	actions, err := p.WorkflowActions(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "update_status", actions[0].ActionType)
	assert.Equal(t, "send_notification", actions[1].ActionType)
	assert.Equal(t, "confirmed", actions[0].ActionConfig["next_status"])
}

func TestDeleteWorkflowCascadesActions(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := saveWorkflowFixture(t, ctx, p, nil)
	require.NoError(t, p.SaveWorkflowAction(ctx, &models.WorkflowAction{
		WorkflowID: wf.ID,
		ActionType: "update_status",
		Position:   1,
	}))

	require.NoError(t, p.DeleteWorkflow(ctx, wf.ID))

	actions, err := p.WorkflowActions(ctx, wf.ID)
	require.NoError(t, err)
	assert.Empty(t, actions)

	err = p.DeleteWorkflow(ctx, wf.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDueRunsHonorsWorkflowDelay(t *testing.T) {
	p, ctx := setupTestDB(t)

	now := time.Now().UTC()

	immediate := saveWorkflowFixture(t, ctx, p, nil)

	delay := 30
	delayed := saveWorkflowFixture(t, ctx, p, &delay)

	dueRun := &models.WorkflowRun{WorkflowID: immediate.ID, QueuedAt: now.Add(-time.Minute)}
	heldRun := &models.WorkflowRun{WorkflowID: delayed.ID, QueuedAt: now.Add(-time.Minute)}
	ripeRun := &models.WorkflowRun{WorkflowID: delayed.ID, QueuedAt: now.Add(-time.Hour)}
	require.NoError(t, p.CreateRun(ctx, dueRun))
	require.NoError(t, p.CreateRun(ctx, heldRun))
	require.NoError(t, p.CreateRun(ctx, ripeRun))

	due, err := p.DueRuns(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	// Oldest queued first.
	assert.Equal(t, ripeRun.ID, due[0].ID)
	assert.Equal(t, dueRun.ID, due[1].ID)
}

func TestDueRunsRespectsLimit(t *testing.T) {
	p, ctx := setupTestDB(t)

	now := time.Now().UTC()
	wf := saveWorkflowFixture(t, ctx, p, nil)

	for i := range 5 {
		run := &models.WorkflowRun{
			WorkflowID: wf.ID,
			QueuedAt:   now.Add(-time.Duration(i+1) * time.Minute),
		}
		require.NoError(t, p.CreateRun(ctx, run))
	}

	due, err := p.DueRuns(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestClaimRunIsExclusive(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := saveWorkflowFixture(t, ctx, p, nil)

	run := &models.WorkflowRun{WorkflowID: wf.ID}
	require.NoError(t, p.CreateRun(ctx, run))

	now := time.Now().UTC()

	claimed, err := p.ClaimRun(ctx, run.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = p.ClaimRun(ctx, run.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestCompleteRunStoresResults(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := saveWorkflowFixture(t, ctx, p, nil)

	run := &models.WorkflowRun{
		WorkflowID:     wf.ID,
		TriggerPayload: models.Document{"appointment_id": "a1"},
	}
	require.NoError(t, p.CreateRun(ctx, run))

	now := time.Now().UTC()

	claimed, err := p.ClaimRun(ctx, run.ID, now)
	require.NoError(t, err)
	require.True(t, claimed)

	results := []models.ActionResult{
		{ActionType: "update_status", Result: models.Document{"updated": true}},
	}
	require.NoError(t, p.CompleteRun(ctx, run.ID, now, results))

	fetched, err := p.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, fetched.Status)
	require.NotNil(t, fetched.CompletedAt)
	require.Len(t, fetched.ResultPayload, 1)
	assert.Equal(t, "update_status", fetched.ResultPayload[0].ActionType)
	assert.Equal(t, "a1", fetched.TriggerPayload["appointment_id"])
}

func TestFailRunRecordsError(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := saveWorkflowFixture(t, ctx, p, nil)

	run := &models.WorkflowRun{WorkflowID: wf.ID}
	require.NoError(t, p.CreateRun(ctx, run))

	now := time.Now().UTC()

	claimed, err := p.ClaimRun(ctx, run.ID, now)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, p.FailRun(ctx, run.ID, now, "action send_notification exploded"))

	fetched, err := p.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, fetched.Status)
	assert.Equal(t, "action send_notification exploded", fetched.ErrorMessage)
	assert.Empty(t, fetched.ResultPayload)
}

func TestIncidentLifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)

	target := &models.SlaTarget{
		Name:             "pending appointments",
		EntityType:       "appointment.pending",
		ThresholdMinutes: 15,
		IsActive:         true,
	}
	require.NoError(t, p.SaveSlaTarget(ctx, target))

	now := time.Now().UTC()

	incident := &models.SlaIncident{
		TargetID:     target.ID,
		EntityType:   target.EntityType,
		EntityID:     "a1",
		Status:       models.IncidentStatusOpen,
		BreachReason: "appointment.pending a1 exceeded the 15 minute threshold",
		OpenedAt:     now,
	}
	require.NoError(t, p.CreateIncident(ctx, incident))

	open, err := p.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "a1", open[0].EntityID)

	byEntity, err := p.OpenIncidentsForEntity(ctx, target.EntityType, "a1")
	require.NoError(t, err)
	require.Len(t, byEntity, 1)

	require.NoError(t, p.ResolveIncident(ctx, incident.ID, now.Add(time.Minute)))

	open, err = p.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Empty(t, open)

	resolved, err := p.Incidents(ctx, persistence.IncidentFilter{
		TargetID: target.ID,
		Status:   models.IncidentStatusResolved,
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.NotNil(t, resolved[0].ResolvedAt)

	err = p.ResolveIncident(ctx, incident.ID, now.Add(2*time.Minute))
	assert.True(t, persistence.IsIncidentNotFound(err))
}

func TestOverduePendingAppointments(t *testing.T) {
	p, ctx := setupTestDB(t)

	now := time.Now().UTC()

	overdue := &models.Appointment{
		Status:      models.AppointmentStatusPending,
		ScheduledAt: now.Add(-time.Hour),
	}
	fresh := &models.Appointment{
		Status:      models.AppointmentStatusPending,
		ScheduledAt: now.Add(-5 * time.Minute),
	}
	settled := &models.Appointment{
		Status:      "completed",
		ScheduledAt: now.Add(-time.Hour),
	}
	require.NoError(t, p.SaveAppointment(ctx, overdue))
	require.NoError(t, p.SaveAppointment(ctx, fresh))
	require.NoError(t, p.SaveAppointment(ctx, settled))

	appointments, err := p.OverduePendingAppointments(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, overdue.ID, appointments[0].ID)
}

func TestIdleConversations(t *testing.T) {
	p, ctx := setupTestDB(t)

	now := time.Now().UTC()

	idle := &models.Conversation{}
	require.NoError(t, p.SaveConversation(ctx, idle))
	require.NoError(t, p.SaveMessage(ctx, &models.Message{
		ConversationID: idle.ID,
		Sender:         "customer",
		Body:           "hello?",
		CreatedAt:      now.Add(-time.Hour),
	}))

	answered := &models.Conversation{}
	require.NoError(t, p.SaveConversation(ctx, answered))
	require.NoError(t, p.SaveMessage(ctx, &models.Message{
		ConversationID: answered.ID,
		Sender:         "customer",
		Body:           "hello?",
		CreatedAt:      now.Add(-time.Hour),
	}))
	require.NoError(t, p.SaveMessage(ctx, &models.Message{
		ConversationID: answered.ID,
		Sender:         "agent",
		Body:           "hi!",
		CreatedAt:      now.Add(-time.Minute),
	}))

	conversations, err := p.IdleConversations(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, idle.ID, conversations[0].ID)
}

func TestNotificationRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)

	notification := &models.Notification{
		UserID:   "u1",
		Category: "workflow",
		Title:    "Appointment reminder",
		Body:     "See you soon",
		Status:   models.NotificationStatusPending,
	}
	require.NoError(t, p.CreateNotification(ctx, notification))

	require.NoError(t, p.MarkNotificationSent(ctx, notification.ID, []string{"email", "push"}))

	notifications, err := p.Notifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationStatusSent, notifications[0].Status)
	assert.Equal(t, []string{"email", "push"}, notifications[0].SentChannels)
}
