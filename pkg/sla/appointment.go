package sla

import (
	"context"
	"time"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// EntityTypeAppointmentPending is the entity type key for the pending
// appointment breach predicate.
const EntityTypeAppointmentPending = "appointment.pending"

// PendingAppointmentChecker flags appointments still pending past their
// scheduled time by more than the target's threshold.
type PendingAppointmentChecker struct {
	entities persistence.EntityRepository
}

// NewPendingAppointmentChecker creates a new PendingAppointmentChecker.
func NewPendingAppointmentChecker(entities persistence.EntityRepository) *PendingAppointmentChecker {
	return &PendingAppointmentChecker{entities: entities}
}

func (*PendingAppointmentChecker) EntityType() string {
	return EntityTypeAppointmentPending
}

func (c *PendingAppointmentChecker) BreachingEntities(ctx context.Context, target *models.SlaTarget, now time.Time) ([]string, error) {
	cutoff := now.Add(-target.Threshold())

	appointments, err := c.entities.OverduePendingAppointments(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(appointments))
	for _, appointment := range appointments {
		ids = append(ids, appointment.ID)
	}

	return ids, nil
}
