package sendnotification

import (
	"log/slog"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/notification"
	"github.com/dukex/opsdesk/pkg/registry"
)

// ActionFactory is the factory for creating send_notification actions.
type ActionFactory struct {
	gateway notification.Gateway
	logger  *slog.Logger
}

// NewActionFactory creates a new instance of ActionFactory.
func NewActionFactory(gateway notification.Gateway, logger *slog.Logger) *ActionFactory {
	return &ActionFactory{gateway: gateway, logger: logger}
}

// ID returns the unique identifier for the action factory.
func (*ActionFactory) ID() string {
	return "send_notification"
}

// Name returns the name of the action factory.
func (*ActionFactory) Name() string {
	return "Send Notification"
}

// Description returns a brief description of the action.
func (*ActionFactory) Description() string {
	return "Sends a notification to a user over their enabled channels. The target user is taken from the configuration or recovered from the trigger payload."
}

// Create creates a send_notification action bound to the provided configuration.
func (f *ActionFactory) Create(config models.Document) (registry.Action, error) {
	return NewAction(config, f.gateway, f.logger), nil
}

// Schema returns the JSON schema for the action configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{
				"type":        "string",
				"description": "Target user. When omitted, the customer_id or user_id of the trigger payload is used.",
			},
			"title": map[string]any{
				"type":        "string",
				"description": "Notification title.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Notification body.",
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Notification category shown in the inbox.",
				"default":     defaultCategory,
			},
		},
	}
}
