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

// AppointmentByID returns an appointment by its ID.
func (p *Persistence) AppointmentByID(_ context.Context, id string) (*models.Appointment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	appointment := &models.Appointment{}

	found, err := p.readInto(collectionAppointments, id, appointment)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("AppointmentByID", "appointment", id, persistence.ErrAppointmentNotFound)
	}

	return appointment, nil
}

// SaveAppointment inserts or updates an appointment.
func (p *Persistence) SaveAppointment(_ context.Context, appointment *models.Appointment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()

	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}

	appointment.UpdatedAt = now

	if appointment.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate appointment ID: %w", err)
		}

		appointment.ID = id.String()
	}

	return p.write(collectionAppointments, appointment.ID, appointment)
}

// UpdateAppointmentStatus overwrites the appointment status unconditionally.
// Updating a missing appointment is not an error.
func (p *Persistence) UpdateAppointmentStatus(_ context.Context, id, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	appointment := &models.Appointment{}

	found, err := p.readInto(collectionAppointments, id, appointment)
	if err != nil {
		return err
	}

	if !found {
		return nil
	}

	appointment.Status = status
	appointment.UpdatedAt = time.Now().UTC()

	return p.write(collectionAppointments, id, appointment)
}

// OverduePendingAppointments returns pending appointments scheduled at or
// before the cutoff.
func (p *Persistence) OverduePendingAppointments(_ context.Context, cutoff time.Time) ([]*models.Appointment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	appointments, err := readAll[models.Appointment](p, collectionAppointments)
	if err != nil {
		return nil, err
	}

	overdue := make([]*models.Appointment, 0)

	for _, appointment := range appointments {
		if appointment.Status == models.AppointmentStatusPending && !appointment.ScheduledAt.After(cutoff) {
			overdue = append(overdue, appointment)
		}
	}

	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].ScheduledAt.Before(overdue[j].ScheduledAt)
	})

	return overdue, nil
}

// SaveConversation inserts a conversation.
func (p *Persistence) SaveConversation(_ context.Context, conversation *models.Conversation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now().UTC()
	}

	if conversation.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate conversation ID: %w", err)
		}

		conversation.ID = id.String()
	}

	return p.write(collectionConversations, conversation.ID, conversation)
}

// SaveMessage inserts a message.
func (p *Persistence) SaveMessage(_ context.Context, message *models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	if message.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}

		message.ID = id.String()
	}

	return p.write(collectionMessages, message.ID, message)
}

// IdleConversations returns conversations whose most recent message is at or
// before the cutoff. Conversations without messages are not considered idle.
func (p *Persistence) IdleConversations(_ context.Context, cutoff time.Time) ([]*models.Conversation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conversations, err := readAll[models.Conversation](p, collectionConversations)
	if err != nil {
		return nil, err
	}

	messages, err := readAll[models.Message](p, collectionMessages)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]time.Time, len(conversations))

	for _, message := range messages {
		last, ok := latest[message.ConversationID]
		if !ok || message.CreatedAt.After(last) {
			latest[message.ConversationID] = message.CreatedAt
		}
	}

	idle := make([]*models.Conversation, 0)

	for _, conversation := range conversations {
		last, ok := latest[conversation.ID]
		if ok && !last.After(cutoff) {
			idle = append(idle, conversation)
		}
	}

	sort.Slice(idle, func(i, j int) bool {
		return idle[i].ID < idle[j].ID
	})

	return idle, nil
}
