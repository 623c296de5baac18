package sendnotification

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/notification"
	"github.com/dukex/opsdesk/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newAction(t *testing.T, config models.Document) (*Action, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	gateway := notification.NewDispatcher(store, testLogger())

	return NewAction(config, gateway, testLogger()), store
}

func TestExecuteSendsToConfiguredUser(t *testing.T) {
	ctx := context.Background()
	action, store := newAction(t, models.Document{
		"user_id": "u1",
		"title":   "Appointment reminder",
		"body":    "See you soon",
	})

	result, err := action.Execute(ctx, models.Document{"trigger_type": "appointment.created"})
	require.NoError(t, err)
	assert.Equal(t, models.Document{"sent": true}, result)

	notifications, err := store.Notifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Appointment reminder", notifications[0].Title)
	assert.Equal(t, "See you soon", notifications[0].Body)
	assert.Equal(t, models.NotificationStatusSent, notifications[0].Status)
	// Without a stored preference every channel is enabled.
	assert.Equal(t, []string{"email", "sms", "push"}, notifications[0].SentChannels)
}

func TestExecuteRecoversUserFromPayload(t *testing.T) {
	ctx := context.Background()
	action, store := newAction(t, models.Document{})

	result, err := action.Execute(ctx, models.Document{
		"customer_id": "c1",
		"message":     "Your appointment is pending",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Document{"sent": true}, result)

	notifications, err := store.Notifications(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, defaultTitle, notifications[0].Title)
	// The payload message becomes the body when the config has none.
	assert.Equal(t, "Your appointment is pending", notifications[0].Body)
	assert.Equal(t, defaultCategory, notifications[0].Category)
}

func TestExecuteSkipsWithoutTargetUser(t *testing.T) {
	ctx := context.Background()
	action, store := newAction(t, models.Document{})

	result, err := action.Execute(ctx, models.Document{"trigger_type": "message.received"})
	require.NoError(t, err)

	assert.Equal(t, true, result["skipped"])
	assert.Equal(t, "missing target user id", result["reason"])

	notifications, err := store.Notifications(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestExecuteRespectsChannelPreference(t *testing.T) {
	ctx := context.Background()
	action, store := newAction(t, models.Document{"user_id": "u1"})

	require.NoError(t, store.SaveUserChannelPreference(ctx, &models.UserChannelPreference{
		UserID:       "u1",
		EmailEnabled: true,
	}))

	_, err := action.Execute(ctx, models.Document{})
	require.NoError(t, err)

	notifications, err := store.Notifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, []string{"email"}, notifications[0].SentChannels)
}
