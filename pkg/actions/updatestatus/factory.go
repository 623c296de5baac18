package updatestatus

import (
	"log/slog"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/registry"
)

// ActionFactory is the factory for creating update_status actions.
type ActionFactory struct {
	entities persistence.EntityRepository
	logger   *slog.Logger
}

// NewActionFactory creates a new instance of ActionFactory.
func NewActionFactory(entities persistence.EntityRepository, logger *slog.Logger) *ActionFactory {
	return &ActionFactory{entities: entities, logger: logger}
}

// ID returns the unique identifier for the action factory.
func (*ActionFactory) ID() string {
	return "update_status"
}

// Name returns the name of the action factory.
func (*ActionFactory) Name() string {
	return "Update Appointment Status"
}

// Description returns a brief description of the action.
func (*ActionFactory) Description() string {
	return "Overwrites the status of the appointment referenced by the trigger payload."
}

// Create creates an update_status action bound to the provided configuration.
func (f *ActionFactory) Create(config models.Document) (registry.Action, error) {
	return NewAction(config, f.entities, f.logger), nil
}

// Schema returns the JSON schema for the action configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"next_status": map[string]any{
				"type":        "string",
				"description": "Status written to the appointment.",
				"examples":    []string{"confirmed", "completed", "cancelled"},
			},
		},
		"required": []string{"next_status"},
	}
}
