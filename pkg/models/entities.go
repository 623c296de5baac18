package models

import "time"

// Operational entities monitored by the SLA subsystem and mutated by actions.
// The engine reads and writes them only through the persistence contract.

// AppointmentStatusPending is the status the appointment.pending SLA predicate
// watches for.
const AppointmentStatusPending = "pending"

type Appointment struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
