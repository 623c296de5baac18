// Package sendnotification implements the send_notification action.
package sendnotification

import (
	"context"
	"log/slog"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/notification"
	"github.com/dukex/opsdesk/pkg/registry"
)

const (
	defaultTitle    = "You have a new update"
	defaultBody     = "An automated workflow has an update for you."
	defaultCategory = "workflow"
)

// Action sends one notification through the gateway. The target user is
// resolved from the action configuration first, then from the trigger
// payload; without a target the action skips rather than fails.
type Action struct {
	config  models.Document
	gateway notification.Gateway
	logger  *slog.Logger
}

// NewAction creates a send_notification action bound to config.
func NewAction(config models.Document, gateway notification.Gateway, logger *slog.Logger) *Action {
	if config == nil {
		config = models.Document{}
	}

	return &Action{
		config:  config,
		gateway: gateway,
		logger:  logger.With("action_type", "send_notification"),
	}
}

func (a *Action) Execute(ctx context.Context, payload models.Document) (models.Document, error) {
	userID, ok := a.resolveUserID(payload)
	if !ok {
		a.logger.InfoContext(ctx, "Skipping notification", "reason", "missing target user id")

		return registry.SkipResult("missing target user id"), nil
	}

	request := notification.Request{
		UserID:   userID,
		Title:    a.config.StringOr("title", defaultTitle),
		Body:     a.config.StringOr("body", payload.StringOr("message", defaultBody)),
		Category: a.config.StringOr("category", defaultCategory),
		Metadata: models.Document{
			"trigger_type": payload.StringOr("trigger_type", ""),
		},
	}

	err := a.gateway.Send(ctx, request)
	if err != nil {
		return nil, err
	}

	return models.Document{"sent": true}, nil
}

// resolveUserID resolves the target user: config user_id, then the payload's
// customer_id, then the payload's user_id.
func (a *Action) resolveUserID(payload models.Document) (string, bool) {
	userID, ok := a.config.String("user_id")
	if ok {
		return userID, true
	}

	userID, ok = payload.String("customer_id")
	if ok {
		return userID, true
	}

	return payload.String("user_id")
}
