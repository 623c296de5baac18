package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// EntityRepository handles the operational entities the SLA predicates read
// and the update_status action mutates.
type EntityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(db *sql.DB, logger *slog.Logger) *EntityRepository {
	return &EntityRepository{db: db, logger: logger}
}

// AppointmentByID returns an appointment by its ID.
func (r *EntityRepository) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `
		SELECT id, customer_id, status, scheduled_at, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`

	appointment := &models.Appointment{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&appointment.ID,
		&appointment.CustomerID,
		&appointment.Status,
		&appointment.ScheduledAt,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("AppointmentByID", "appointment", id, persistence.ErrAppointmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan appointment: %w", err)
	}

	return appointment, nil
}

// SaveAppointment inserts or updates an appointment.
func (r *EntityRepository) SaveAppointment(ctx context.Context, appointment *models.Appointment) error {
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

	query := `
		INSERT INTO appointments (id, customer_id, status, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id
		  , status = EXCLUDED.status
		  , scheduled_at = EXCLUDED.scheduled_at
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.CustomerID,
		appointment.Status,
		appointment.ScheduledAt,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("SaveAppointment", "appointment", appointment.ID, err)
	}

	return nil
}

// UpdateAppointmentStatus overwrites the appointment status unconditionally.
// Updating a missing appointment is not an error.
func (r *EntityRepository) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	query := `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return persistence.NewStoreError("UpdateAppointmentStatus", "appointment", id, err)
	}

	return nil
}

// OverduePendingAppointments returns pending appointments scheduled at or
// before the cutoff.
func (r *EntityRepository) OverduePendingAppointments(ctx context.Context, cutoff time.Time) ([]*models.Appointment, error) {
	query := `
		SELECT id, customer_id, status, scheduled_at, created_at, updated_at
		FROM appointments
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue appointments: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	appointments := make([]*models.Appointment, 0)

	for rows.Next() {
		appointment := &models.Appointment{}

		err := rows.Scan(
			&appointment.ID,
			&appointment.CustomerID,
			&appointment.Status,
			&appointment.ScheduledAt,
			&appointment.CreatedAt,
			&appointment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}

		appointments = append(appointments, appointment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	return appointments, nil
}

// SaveConversation inserts a conversation.
func (r *EntityRepository) SaveConversation(ctx context.Context, conversation *models.Conversation) error {
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

	query := `
		INSERT INTO conversations (id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, conversation.ID, conversation.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveConversation", "conversation", conversation.ID, err)
	}

	return nil
}

// SaveMessage inserts a message.
func (r *EntityRepository) SaveMessage(ctx context.Context, message *models.Message) error {
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

	query := `
		INSERT INTO messages (id, conversation_id, sender, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.ConversationID,
		message.Sender,
		message.Body,
		message.CreatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("SaveMessage", "message", message.ID, err)
	}

	return nil
}

// IdleConversations returns conversations whose most recent message is at or
// before the cutoff. The lateral join breaks ties by latest created_at per
// conversation.
func (r *EntityRepository) IdleConversations(ctx context.Context, cutoff time.Time) ([]*models.Conversation, error) {
	query := `
		SELECT c.id, c.created_at
		FROM conversations c
		JOIN LATERAL (
			SELECT m.created_at
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC
			LIMIT 1
		) last ON TRUE
		WHERE last.created_at <= $1
		ORDER BY c.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query idle conversations: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	conversations := make([]*models.Conversation, 0)

	for rows.Next() {
		conversation := &models.Conversation{}

		err := rows.Scan(&conversation.ID, &conversation.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		conversations = append(conversations, conversation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}
