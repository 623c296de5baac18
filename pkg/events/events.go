// Package events defines the domain events other back-office systems publish
// toward the engine. Events are the transport form of triggers: the engine
// consumes them from the bus and turns each into an EnqueueTrigger call.
package events

import (
	"time"

	"github.com/dukex/opsdesk/pkg/models"
)

type EventType string

// Topic is the bus topic all domain events are published on.
const Topic = "opsdesk.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	AppointmentCreatedEvent   EventType = "appointment.created"
	AppointmentCompletedEvent EventType = "appointment.completed"
	MessageReceivedEvent      EventType = "message.received"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AppointmentCreated announces a newly booked appointment.
type AppointmentCreated struct {
	BaseEvent

	AppointmentID string    `json:"appointment_id"`
	CustomerID    string    `json:"customer_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

func (e AppointmentCreated) GetType() EventType {
	return AppointmentCreatedEvent
}

// TriggerPayload converts the event into the payload stored on runs it fans
// out to.
func (e AppointmentCreated) TriggerPayload() models.Document {
	return models.Document{
		"appointment_id": e.AppointmentID,
		"customer_id":    e.CustomerID,
		"scheduled_at":   e.ScheduledAt.Format(time.RFC3339),
	}
}

// AppointmentCompleted announces an appointment that reached a settled state.
// Besides fanning out to workflows, it settles any open SLA incidents for the
// appointment.
type AppointmentCompleted struct {
	BaseEvent

	AppointmentID string `json:"appointment_id"`
	CustomerID    string `json:"customer_id"`
}

func (e AppointmentCompleted) GetType() EventType {
	return AppointmentCompletedEvent
}

func (e AppointmentCompleted) TriggerPayload() models.Document {
	return models.Document{
		"appointment_id": e.AppointmentID,
		"customer_id":    e.CustomerID,
	}
}

// MessageReceived announces a new message on a conversation.
type MessageReceived struct {
	BaseEvent

	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Sender         string `json:"sender"`
}

func (e MessageReceived) GetType() EventType {
	return MessageReceivedEvent
}

func (e MessageReceived) TriggerPayload() models.Document {
	return models.Document{
		"conversation_id": e.ConversationID,
		"message_id":      e.MessageID,
		"sender":          e.Sender,
	}
}
