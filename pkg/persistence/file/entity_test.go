package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/models"
)

func TestUpdateAppointmentStatus(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	appointment := &models.Appointment{
		CustomerID:  "c1",
		Status:      models.AppointmentStatusPending,
		ScheduledAt: time.Now().UTC(),
	}
	require.NoError(t, p.SaveAppointment(ctx, appointment))

	require.NoError(t, p.UpdateAppointmentStatus(ctx, appointment.ID, "confirmed"))

	fetched, err := p.AppointmentByID(ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", fetched.Status)
}

func TestUpdateAppointmentStatusMissingIsNoError(t *testing.T) {
	p := newTestPersistence(t)

	assert.NoError(t, p.UpdateAppointmentStatus(context.Background(), "missing", "confirmed"))
}

func TestOverduePendingAppointments(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	now := time.Now().UTC()

	overdue := &models.Appointment{Status: models.AppointmentStatusPending, ScheduledAt: now.Add(-time.Hour)}
	future := &models.Appointment{Status: models.AppointmentStatusPending, ScheduledAt: now.Add(time.Hour)}
	confirmed := &models.Appointment{Status: "confirmed", ScheduledAt: now.Add(-time.Hour)}

	for _, appointment := range []*models.Appointment{overdue, future, confirmed} {
		require.NoError(t, p.SaveAppointment(ctx, appointment))
	}

	found, err := p.OverduePendingAppointments(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, overdue.ID, found[0].ID)
}

func TestIdleConversations(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	now := time.Now().UTC()

	idle := &models.Conversation{}
	fresh := &models.Conversation{}
	silent := &models.Conversation{}

	for _, conversation := range []*models.Conversation{idle, fresh, silent} {
		require.NoError(t, p.SaveConversation(ctx, conversation))
	}

	// The idle conversation's latest message is old; an even older one makes
	// sure the latest message wins.
	require.NoError(t, p.SaveMessage(ctx, &models.Message{
		ConversationID: idle.ID, Sender: "customer", CreatedAt: now.Add(-3 * time.Hour),
	}))
	require.NoError(t, p.SaveMessage(ctx, &models.Message{
		ConversationID: idle.ID, Sender: "agent", CreatedAt: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, p.SaveMessage(ctx, &models.Message{
		ConversationID: fresh.ID, Sender: "customer", CreatedAt: now.Add(-time.Minute),
	}))

	found, err := p.IdleConversations(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, idle.ID, found[0].ID)
}
