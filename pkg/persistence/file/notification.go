package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// CreateNotification inserts a new notification.
func (p *Persistence) CreateNotification(_ context.Context, notification *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if notification.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate notification ID: %w", err)
		}

		notification.ID = id.String()
	}

	if notification.Status == "" {
		notification.Status = models.NotificationStatusPending
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	return p.write(collectionNotifications, notification.ID, notification)
}

// MarkNotificationSent records the channels the notification went out on.
func (p *Persistence) MarkNotificationSent(_ context.Context, id string, channels []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	notification := &models.Notification{}

	found, err := p.readInto(collectionNotifications, id, notification)
	if err != nil {
		return err
	}

	if !found {
		return persistence.NewStoreError("MarkNotificationSent", "notification", id, persistence.ErrNotificationNotFound)
	}

	notification.Status = models.NotificationStatusSent
	notification.SentChannels = channels

	return p.write(collectionNotifications, id, notification)
}

// Notifications returns a user's notifications, newest first.
func (p *Persistence) Notifications(_ context.Context, userID string) ([]*models.Notification, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	notifications, err := readAll[models.Notification](p, collectionNotifications)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Notification, 0)

	for _, notification := range notifications {
		if notification.UserID == userID {
			matched = append(matched, notification)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched, nil
}

// UserChannelPreference returns the user's channel preference, defaulting to
// all channels enabled when none is stored.
func (p *Persistence) UserChannelPreference(_ context.Context, userID string) (*models.UserChannelPreference, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	preference := &models.UserChannelPreference{}

	found, err := p.readInto(collectionPreferences, userID, preference)
	if err != nil {
		return nil, err
	}

	if !found {
		return &models.UserChannelPreference{
			UserID:       userID,
			EmailEnabled: true,
			SMSEnabled:   true,
			PushEnabled:  true,
		}, nil
	}

	return preference, nil
}

// SaveUserChannelPreference inserts or updates a user's channel preference.
func (p *Persistence) SaveUserChannelPreference(_ context.Context, preference *models.UserChannelPreference) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(collectionPreferences, preference.UserID, preference)
}
