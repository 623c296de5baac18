package sla

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

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

func saveTarget(t *testing.T, store *file.Persistence, entityType string, thresholdMinutes int) *models.SlaTarget {
	t.Helper()

	target := &models.SlaTarget{
		Name:             "target " + entityType,
		EntityType:       entityType,
		ThresholdMinutes: thresholdMinutes,
		IsActive:         true,
	}
	require.NoError(t, store.SaveSlaTarget(context.Background(), target))

	return target
}

func TestReconcileOpensIncidentsForNewBreaches(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	target := saveTarget(t, store, EntityTypeAppointmentPending, 15)

	reconciler := NewReconciler(store, testLogger())

	now := time.Now().UTC()
	require.NoError(t, reconciler.Reconcile(ctx, target, []string{"a1", "a2"}, now))

	open, err := store.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, open, 2)

	for _, incident := range open {
		assert.Equal(t, models.IncidentStatusOpen, incident.Status)
		assert.Equal(t, EntityTypeAppointmentPending, incident.EntityType)
		assert.Contains(t, incident.BreachReason, EntityTypeAppointmentPending)
		assert.Contains(t, incident.BreachReason, "15 minute")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	target := saveTarget(t, store, EntityTypeAppointmentPending, 15)

	reconciler := NewReconciler(store, testLogger())

	now := time.Now().UTC()
	breaching := []string{"a1"}

	require.NoError(t, reconciler.Reconcile(ctx, target, breaching, now))
	require.NoError(t, reconciler.Reconcile(ctx, target, breaching, now.Add(time.Minute)))
	require.NoError(t, reconciler.Reconcile(ctx, target, breaching, now.Add(2*time.Minute)))

	open, err := store.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestReconcileResolvesClearedBreaches(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	target := saveTarget(t, store, EntityTypeAppointmentPending, 15)

	reconciler := NewReconciler(store, testLogger())

	now := time.Now().UTC()
	require.NoError(t, reconciler.Reconcile(ctx, target, []string{"a1", "a2"}, now))

	// a1 clears, a2 keeps breaching.
	require.NoError(t, reconciler.Reconcile(ctx, target, []string{"a2"}, now.Add(time.Minute)))

	open, err := store.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "a2", open[0].EntityID)

	resolved, err := store.Incidents(ctx, persistence.IncidentFilter{
		TargetID: target.ID,
		Status:   models.IncidentStatusResolved,
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "a1", resolved[0].EntityID)
}

func TestReconcileKeepsAcknowledgedIncidents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	target := saveTarget(t, store, EntityTypeAppointmentPending, 15)

	require.NoError(t, store.CreateIncident(ctx, &models.SlaIncident{
		TargetID:   target.ID,
		EntityType: target.EntityType,
		EntityID:   "a1",
		Status:     models.IncidentStatusAcknowledged,
	}))

	reconciler := NewReconciler(store, testLogger())

	// Still breaching: the acknowledged incident must not be duplicated.
	require.NoError(t, reconciler.Reconcile(ctx, target, []string{"a1"}, time.Now().UTC()))

	open, err := store.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, models.IncidentStatusAcknowledged, open[0].Status)

	// Breach cleared: acknowledged incidents resolve like open ones.
	require.NoError(t, reconciler.Reconcile(ctx, target, nil, time.Now().UTC()))

	open, err = store.OpenIncidentsForTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCloseIncidentsForEntityAcrossTargets(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	strict := saveTarget(t, store, EntityTypeAppointmentPending, 15)
	lenient := saveTarget(t, store, EntityTypeAppointmentPending, 60)

	reconciler := NewReconciler(store, testLogger())

	now := time.Now().UTC()
	require.NoError(t, reconciler.Reconcile(ctx, strict, []string{"a1", "a2"}, now))
	require.NoError(t, reconciler.Reconcile(ctx, lenient, []string{"a1"}, now))

	require.NoError(t, reconciler.CloseIncidentsForEntity(ctx, EntityTypeAppointmentPending, "a1"))

	strictOpen, err := store.OpenIncidentsForTarget(ctx, strict.ID)
	require.NoError(t, err)
	require.Len(t, strictOpen, 1)
	assert.Equal(t, "a2", strictOpen[0].EntityID)

	lenientOpen, err := store.OpenIncidentsForTarget(ctx, lenient.ID)
	require.NoError(t, err)
	assert.Empty(t, lenientOpen)
}

func TestCloseIncidentsForEntityNoOpenIncidents(t *testing.T) {
	store := newStore(t)
	reconciler := NewReconciler(store, testLogger())

	assert.NoError(t, reconciler.CloseIncidentsForEntity(context.Background(), EntityTypeAppointmentPending, "nobody"))
}
