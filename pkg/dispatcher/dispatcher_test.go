package dispatcher

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/channels/gochannel"
	"github.com/dukex/opsdesk/pkg/eventbus"
	"github.com/dukex/opsdesk/pkg/events"
	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/persistence/file"
	"github.com/dukex/opsdesk/pkg/sla"
	"github.com/dukex/opsdesk/pkg/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupDispatcher(t *testing.T) (eventbus.EventBus, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	logger := testLogger()
	d := NewDispatcher(bus, workflow.NewEnqueuer(store, logger), sla.NewReconciler(store, logger), logger)

	require.NoError(t, d.Start(context.Background()))

	t.Cleanup(func() { _ = bus.Close() })

	return bus, store
}

func waitForRuns(t *testing.T, store *file.Persistence, want int) []*models.WorkflowRun {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for {
		runs, err := store.Runs(context.Background(), persistence.RunFilter{})
		require.NoError(t, err)

		if len(runs) >= want || time.Now().After(deadline) {
			require.Len(t, runs, want)

			return runs
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func TestAppointmentCreatedFansOutToWorkflows(t *testing.T) {
	ctx := context.Background()
	bus, store := setupDispatcher(t)

	wf := &models.Workflow{
		Name:        "reminder",
		TriggerType: "appointment.created",
		IsActive:    true,
	}
	require.NoError(t, store.SaveWorkflow(ctx, wf))

	event := &events.AppointmentCreated{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.AppointmentCreatedEvent,
			Timestamp: time.Now().UTC(),
		},
		AppointmentID: "a1",
		CustomerID:    "c1",
		ScheduledAt:   time.Now().UTC(),
	}
	require.NoError(t, bus.Publish(ctx, "a1", event))

	runs := waitForRuns(t, store, 1)
	assert.Equal(t, wf.ID, runs[0].WorkflowID)
	assert.Equal(t, models.RunStatusQueued, runs[0].Status)
	assert.Equal(t, "a1", runs[0].TriggerPayload["appointment_id"])
	assert.Equal(t, "appointment.created", runs[0].TriggerPayload["trigger_type"])
}

func TestAppointmentCompletedClosesIncidents(t *testing.T) {
	ctx := context.Background()
	bus, store := setupDispatcher(t)

	wf := &models.Workflow{
		Name:        "follow-up",
		TriggerType: "appointment.completed",
		IsActive:    true,
	}
	require.NoError(t, store.SaveWorkflow(ctx, wf))

	target := &models.SlaTarget{
		Name:             "pending appointments",
		EntityType:       sla.EntityTypeAppointmentPending,
		ThresholdMinutes: 15,
		IsActive:         true,
	}
	require.NoError(t, store.SaveSlaTarget(ctx, target))

	require.NoError(t, store.CreateIncident(ctx, &models.SlaIncident{
		TargetID:   target.ID,
		EntityType: target.EntityType,
		EntityID:   "a1",
		Status:     models.IncidentStatusOpen,
		OpenedAt:   time.Now().UTC(),
	}))

	event := &events.AppointmentCompleted{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.AppointmentCompletedEvent,
			Timestamp: time.Now().UTC(),
		},
		AppointmentID: "a1",
		CustomerID:    "c1",
	}
	require.NoError(t, bus.Publish(ctx, "a1", event))

	waitForRuns(t, store, 1)

	open, err := store.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMessageReceivedWithoutSubscribersIsNoOp(t *testing.T) {
	ctx := context.Background()
	bus, store := setupDispatcher(t)

	event := &events.MessageReceived{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.MessageReceivedEvent,
			Timestamp: time.Now().UTC(),
		},
		ConversationID: "conv1",
		MessageID:      "m1",
		Sender:         "customer",
	}
	require.NoError(t, bus.Publish(ctx, "conv1", event))

	time.Sleep(50 * time.Millisecond)

	runs, err := store.Runs(ctx, persistence.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
