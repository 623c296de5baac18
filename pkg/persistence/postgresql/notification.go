package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// NotificationRepository handles notification and channel preference storage
// on behalf of the notification gateway.
type NotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sql.DB, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// CreateNotification inserts a new notification.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
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

	metadataJSON, err := json.Marshal(notification.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, category, title, body, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Category,
		notification.Title,
		notification.Body,
		notification.Status,
		metadataJSON,
		notification.CreatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("CreateNotification", "notification", notification.ID, err)
	}

	return nil
}

// MarkNotificationSent records the channels the notification went out on.
func (r *NotificationRepository) MarkNotificationSent(ctx context.Context, id string, channels []string) error {
	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("failed to marshal sent channels: %w", err)
	}

	query := `
		UPDATE notifications
		SET status = 'sent', sent_channels = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, channelsJSON)
	if err != nil {
		return persistence.NewStoreError("MarkNotificationSent", "notification", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("MarkNotificationSent", "notification", id, persistence.ErrNotificationNotFound)
	}

	return nil
}

// Notifications returns a user's notifications, newest first.
func (r *NotificationRepository) Notifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, category, title, body, status, sent_channels, metadata, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		notification := &models.Notification{}

		var channelsJSON, metadataJSON []byte

		err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Category,
			&notification.Title,
			&notification.Body,
			&notification.Status,
			&channelsJSON,
			&metadataJSON,
			&notification.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if len(channelsJSON) > 0 {
			err = json.Unmarshal(channelsJSON, &notification.SentChannels)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal sent channels: %w", err)
			}
		}

		if len(metadataJSON) > 0 {
			err = json.Unmarshal(metadataJSON, &notification.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
			}
		}

		notifications = append(notifications, notification)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// UserChannelPreference returns the user's channel preference, defaulting to
// all channels enabled when none is stored.
func (r *NotificationRepository) UserChannelPreference(ctx context.Context, userID string) (*models.UserChannelPreference, error) {
	query := `
		SELECT user_id, email_enabled, sms_enabled, push_enabled
		FROM user_channel_preferences
		WHERE user_id = $1
	`

	preference := &models.UserChannelPreference{}

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&preference.UserID,
		&preference.EmailEnabled,
		&preference.SMSEnabled,
		&preference.PushEnabled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.UserChannelPreference{
				UserID:       userID,
				EmailEnabled: true,
				SMSEnabled:   true,
				PushEnabled:  true,
			}, nil
		}

		return nil, fmt.Errorf("failed to scan channel preference: %w", err)
	}

	return preference, nil
}

// SaveUserChannelPreference inserts or updates a user's channel preference.
func (r *NotificationRepository) SaveUserChannelPreference(ctx context.Context, preference *models.UserChannelPreference) error {
	query := `
		INSERT INTO user_channel_preferences (user_id, email_enabled, sms_enabled, push_enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled
		  , sms_enabled = EXCLUDED.sms_enabled
		  , push_enabled = EXCLUDED.push_enabled
	`

	_, err := r.db.ExecContext(ctx, query,
		preference.UserID,
		preference.EmailEnabled,
		preference.SMSEnabled,
		preference.PushEnabled,
	)
	if err != nil {
		return persistence.NewStoreError("SaveUserChannelPreference", "channel_preference", preference.UserID, err)
	}

	return nil
}
