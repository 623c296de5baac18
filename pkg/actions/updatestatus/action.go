// Package updatestatus implements the update_status action.
package updatestatus

import (
	"context"
	"log/slog"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/registry"
)

// Action overwrites an appointment's status. The appointment id comes from
// the trigger payload, the new status from the action configuration; both
// are required, and the update is applied without an existence check.
type Action struct {
	config   models.Document
	entities persistence.EntityRepository
	logger   *slog.Logger
}

// NewAction creates an update_status action bound to config.
func NewAction(config models.Document, entities persistence.EntityRepository, logger *slog.Logger) *Action {
	if config == nil {
		config = models.Document{}
	}

	return &Action{
		config:   config,
		entities: entities,
		logger:   logger.With("action_type", "update_status"),
	}
}

func (a *Action) Execute(ctx context.Context, payload models.Document) (models.Document, error) {
	appointmentID, ok := payload.String("appointment_id")
	if !ok {
		a.logger.InfoContext(ctx, "Skipping status update", "reason", "missing appointment_id")

		return registry.SkipResult("missing appointment_id in trigger payload"), nil
	}

	nextStatus, ok := a.config.String("next_status")
	if !ok {
		a.logger.InfoContext(ctx, "Skipping status update", "reason", "missing next_status")

		return registry.SkipResult("missing next_status in action config"), nil
	}

	err := a.entities.UpdateAppointmentStatus(ctx, appointmentID, nextStatus)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Updated appointment status",
		"appointment_id", appointmentID,
		"next_status", nextStatus)

	return models.Document{"updated": true}, nil
}
