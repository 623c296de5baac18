package sla

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// Reconciler diffs a target's current breach set against its open incidents
// and applies the difference: open incidents for new breaches, resolve
// incidents whose entity no longer breaches. Reconciling the same breach set
// twice is a no-op, so at most one open or acknowledged incident exists per
// (target, entity) pair.
type Reconciler struct {
	incidents persistence.SlaRepository
	logger    *slog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(incidents persistence.SlaRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		incidents: incidents,
		logger:    logger.With("module", "sla_reconciler"),
	}
}

// Reconcile brings the target's incidents in line with the breaching entity
// ids observed at now. Acknowledged incidents count as open: they are neither
// duplicated nor reopened, and they resolve like any other when the breach
// clears.
func (r *Reconciler) Reconcile(ctx context.Context, target *models.SlaTarget, breaching []string, now time.Time) error {
	open, err := r.incidents.OpenIncidentsForTarget(ctx, target.ID)
	if err != nil {
		return err
	}

	openByEntity := make(map[string]*models.SlaIncident, len(open))
	for _, incident := range open {
		openByEntity[incident.EntityID] = incident
	}

	breachingSet := make(map[string]struct{}, len(breaching))

	for _, entityID := range breaching {
		breachingSet[entityID] = struct{}{}

		if _, exists := openByEntity[entityID]; exists {
			continue
		}

		err := r.openIncident(ctx, target, entityID, now)
		if err != nil {
			return err
		}
	}

	for _, incident := range open {
		if _, stillBreaching := breachingSet[incident.EntityID]; stillBreaching {
			continue
		}

		err := r.incidents.ResolveIncident(ctx, incident.ID, now)
		if err != nil {
			return err
		}

		r.logger.InfoContext(ctx, "Resolved incident",
			"incident_id", incident.ID,
			"target_id", target.ID,
			"entity_id", incident.EntityID)
	}

	return nil
}

func (r *Reconciler) openIncident(ctx context.Context, target *models.SlaTarget, entityID string, now time.Time) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	incident := &models.SlaIncident{
		ID:         id.String(),
		TargetID:   target.ID,
		EntityType: target.EntityType,
		EntityID:   entityID,
		Status:     models.IncidentStatusOpen,
		BreachReason: fmt.Sprintf("%s %s exceeded the %d minute threshold",
			target.EntityType, entityID, target.ThresholdMinutes),
		OpenedAt: now,
	}

	err = r.incidents.CreateIncident(ctx, incident)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Opened incident",
		"incident_id", incident.ID,
		"target_id", target.ID,
		"entity_type", target.EntityType,
		"entity_id", entityID)

	return nil
}

// CloseIncidentsForEntity resolves every open or acknowledged incident for the
// entity across all targets. Used when an external event settles the entity,
// such as an appointment completing, without waiting for the next monitor
// pass.
func (r *Reconciler) CloseIncidentsForEntity(ctx context.Context, entityType, entityID string) error {
	open, err := r.incidents.OpenIncidentsForEntity(ctx, entityType, entityID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	for _, incident := range open {
		err := r.incidents.ResolveIncident(ctx, incident.ID, now)
		if err != nil {
			return err
		}

		r.logger.InfoContext(ctx, "Resolved incident on entity settlement",
			"incident_id", incident.ID,
			"target_id", incident.TargetID,
			"entity_type", entityType,
			"entity_id", entityID)
	}

	return nil
}
