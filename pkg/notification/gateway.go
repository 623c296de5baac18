// Package notification provides the dispatch contract between the automation
// engine and the delivery channels. The engine only ever issues a Send; the
// gateway owns channel selection, preference lookup and delivery bookkeeping.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// ErrMissingUserID indicates a send request without a target user.
var ErrMissingUserID = errors.New("notification user id is required")

// Request describes one notification to fan out.
type Request struct {
	UserID   string
	Title    string
	Body     string
	Category string
	Metadata models.Document
}

// Gateway accepts delivery requests from the engine. Fire-and-forget from
// the engine's perspective beyond the call's own error.
type Gateway interface {
	Send(ctx context.Context, request Request) error
}

// Dispatcher is the store-backed gateway implementation. It persists the
// notification, resolves the user's enabled channels and records the
// channel-sent bookkeeping. The channel transports themselves (email, SMS,
// push) are external collaborators reached beyond this process.
type Dispatcher struct {
	store  persistence.NotificationRepository
	logger *slog.Logger
}

// NewDispatcher creates a store-backed notification gateway.
func NewDispatcher(store persistence.NotificationRepository, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logger.With("module", "notification_gateway"),
	}
}

// Send persists the notification and fans it out over the user's enabled
// channels.
func (d *Dispatcher) Send(ctx context.Context, request Request) error {
	if request.UserID == "" {
		return ErrMissingUserID
	}

	notification := &models.Notification{
		UserID:   request.UserID,
		Category: request.Category,
		Title:    request.Title,
		Body:     request.Body,
		Metadata: request.Metadata,
	}

	if notification.Category == "" {
		notification.Category = "general"
	}

	err := d.store.CreateNotification(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	preference, err := d.store.UserChannelPreference(ctx, request.UserID)
	if err != nil {
		return fmt.Errorf("failed to load channel preference: %w", err)
	}

	channels := preference.Channels()

	for _, channel := range channels {
		d.logger.InfoContext(ctx, "Dispatching notification",
			"notification_id", notification.ID,
			"user_id", request.UserID,
			"channel", channel)
	}

	err = d.store.MarkNotificationSent(ctx, notification.ID, channels)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}
