package janitor

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewJanitorDefaults(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	j := NewJanitor(store, "", 0, testLogger())

	assert.Equal(t, DefaultSchedule, j.schedule)
	assert.Equal(t, DefaultStuckAfter, j.stuckAfter)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	j := NewJanitor(store, "not a schedule", time.Hour, testLogger())

	assert.Error(t, j.Start(context.Background()))
}

func TestReportStuckRunsLeavesRunsUntouched(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	wf := &models.Workflow{
		Name:        "reminder",
		TriggerType: "appointment.created",
		IsActive:    true,
	}
	require.NoError(t, store.SaveWorkflow(ctx, wf))

	run := &models.WorkflowRun{WorkflowID: wf.ID}
	require.NoError(t, store.CreateRun(ctx, run))

	claimed, err := store.ClaimRun(ctx, run.ID, time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	j := NewJanitor(store, DefaultSchedule, time.Hour, testLogger())
	j.ReportStuckRuns(ctx)

	// Reporting never reclaims: the run stays running for an operator to
	// inspect.
	fetched, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, fetched.Status)

	stuck, err := store.RunningRunsStartedBefore(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, run.ID, stuck[0].ID)
}
