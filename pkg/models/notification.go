package models

import "time"

// NotificationStatus is the delivery state of a notification.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Notification is the record created when the engine dispatches a message to
// a user. The engine only ever creates notifications; channel selection and
// delivery bookkeeping belong to the notification gateway.
type Notification struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Category     string             `json:"category"`
	Title        string             `json:"title"`
	Body         string             `json:"body"`
	Status       NotificationStatus `json:"status"`
	SentChannels []string           `json:"sent_channels,omitempty"`
	Metadata     Document           `json:"metadata,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// UserChannelPreference holds a user's enabled delivery channels.
type UserChannelPreference struct {
	UserID       string `json:"user_id"`
	EmailEnabled bool   `json:"email_enabled"`
	SMSEnabled   bool   `json:"sms_enabled"`
	PushEnabled  bool   `json:"push_enabled"`
}

// Channels returns the names of the enabled channels, in delivery order.
func (p *UserChannelPreference) Channels() []string {
	channels := make([]string, 0, 3)
	if p.EmailEnabled {
		channels = append(channels, "email")
	}

	if p.SMSEnabled {
		channels = append(channels, "sms")
	}

	if p.PushEnabled {
		channels = append(channels, "push")
	}

	return channels
}
