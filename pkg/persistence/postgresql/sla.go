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

// SlaRepository handles SLA target and incident database operations.
type SlaRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSlaRepository creates a new SLA repository.
func NewSlaRepository(db *sql.DB, logger *slog.Logger) *SlaRepository {
	return &SlaRepository{db: db, logger: logger}
}

const slaTargetColumns = `
	id
  , name
  , entity_type
  , threshold_minutes
  , is_active
  , created_at
  , updated_at
`

const incidentColumns = `
	id
  , target_id
  , entity_type
  , entity_id
  , status
  , breach_reason
  , opened_at
  , resolved_at
`

// SlaTargets returns all SLA targets.
func (r *SlaRepository) SlaTargets(ctx context.Context) ([]*models.SlaTarget, error) {
	query := `SELECT ` + slaTargetColumns + ` FROM sla_targets ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sla targets: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanSlaTargets(rows)
}

// ActiveSlaTargets returns the targets the monitor evaluates each tick.
func (r *SlaRepository) ActiveSlaTargets(ctx context.Context) ([]*models.SlaTarget, error) {
	query := `SELECT ` + slaTargetColumns + ` FROM sla_targets WHERE is_active ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sla targets: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanSlaTargets(rows)
}

// SlaTargetByID returns an SLA target by its ID.
func (r *SlaRepository) SlaTargetByID(ctx context.Context, id string) (*models.SlaTarget, error) {
	query := `SELECT ` + slaTargetColumns + ` FROM sla_targets WHERE id = $1`

	target, err := scanSlaTarget(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("SlaTargetByID", "sla_target", id, persistence.ErrSlaTargetNotFound)
		}

		return nil, fmt.Errorf("failed to scan sla target: %w", err)
	}

	return target, nil
}

// SaveSlaTarget inserts or updates an SLA target.
func (r *SlaRepository) SaveSlaTarget(ctx context.Context, target *models.SlaTarget) error {
	now := time.Now().UTC()

	if target.CreatedAt.IsZero() {
		target.CreatedAt = now
	}

	target.UpdatedAt = now

	if target.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate sla target ID: %w", err)
		}

		target.ID = id.String()
	}

	query := `
		INSERT INTO sla_targets (id, name, entity_type, threshold_minutes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , entity_type = EXCLUDED.entity_type
		  , threshold_minutes = EXCLUDED.threshold_minutes
		  , is_active = EXCLUDED.is_active
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		target.ID,
		target.Name,
		target.EntityType,
		target.ThresholdMinutes,
		target.IsActive,
		target.CreatedAt,
		target.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("SaveSlaTarget", "sla_target", target.ID, err)
	}

	return nil
}

// Incidents returns incidents matching the filter, newest first.
func (r *SlaRepository) Incidents(ctx context.Context, filter persistence.IncidentFilter) ([]*models.SlaIncident, error) {
	query := `SELECT ` + incidentColumns + ` FROM sla_incidents WHERE TRUE`

	args := make([]any, 0, 3)

	if filter.TargetID != "" {
		args = append(args, filter.TargetID)
		query += fmt.Sprintf(" AND target_id = $%d", len(args))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY opened_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanIncidents(rows)
}

// OpenIncidentsForTarget returns the target's open and acknowledged incidents.
func (r *SlaRepository) OpenIncidentsForTarget(ctx context.Context, targetID string) ([]*models.SlaIncident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM sla_incidents
		WHERE target_id = $1 AND status IN ('open', 'acknowledged')
		ORDER BY opened_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open incidents for target: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanIncidents(rows)
}

// OpenIncidentsForEntity returns open and acknowledged incidents for the
// exact entity across all targets.
func (r *SlaRepository) OpenIncidentsForEntity(ctx context.Context, entityType, entityID string) ([]*models.SlaIncident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM sla_incidents
		WHERE entity_type = $1 AND entity_id = $2 AND status IN ('open', 'acknowledged')
		ORDER BY opened_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open incidents for entity: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	return scanIncidents(rows)
}

// CreateIncident inserts a new incident.
func (r *SlaRepository) CreateIncident(ctx context.Context, incident *models.SlaIncident) error {
	if incident.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate incident ID: %w", err)
		}

		incident.ID = id.String()
	}

	if incident.Status == "" {
		incident.Status = models.IncidentStatusOpen
	}

	if incident.OpenedAt.IsZero() {
		incident.OpenedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sla_incidents (id, target_id, entity_type, entity_id, status, breach_reason, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		incident.ID,
		incident.TargetID,
		incident.EntityType,
		incident.EntityID,
		incident.Status,
		incident.BreachReason,
		incident.OpenedAt,
	)
	if err != nil {
		return persistence.NewStoreError("CreateIncident", "incident", incident.ID, err)
	}

	return nil
}

// ResolveIncident transitions an open or acknowledged incident to resolved.
func (r *SlaRepository) ResolveIncident(ctx context.Context, id string, resolvedAt time.Time) error {
	query := `
		UPDATE sla_incidents
		SET status = 'resolved', resolved_at = $2
		WHERE id = $1 AND status IN ('open', 'acknowledged')
	`

	result, err := r.db.ExecContext(ctx, query, id, resolvedAt)
	if err != nil {
		return persistence.NewStoreError("ResolveIncident", "incident", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("ResolveIncident", "incident", id, persistence.ErrIncidentNotFound)
	}

	return nil
}

func scanSlaTarget(row rowScanner) (*models.SlaTarget, error) {
	target := &models.SlaTarget{}

	err := row.Scan(
		&target.ID,
		&target.Name,
		&target.EntityType,
		&target.ThresholdMinutes,
		&target.IsActive,
		&target.CreatedAt,
		&target.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return target, nil
}

func scanSlaTargets(rows *sql.Rows) ([]*models.SlaTarget, error) {
	targets := make([]*models.SlaTarget, 0)

	for rows.Next() {
		target, err := scanSlaTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sla target: %w", err)
		}

		targets = append(targets, target)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating sla targets: %w", err)
	}

	return targets, nil
}

func scanIncidents(rows *sql.Rows) ([]*models.SlaIncident, error) {
	incidents := make([]*models.SlaIncident, 0)

	for rows.Next() {
		incident := &models.SlaIncident{}

		err := rows.Scan(
			&incident.ID,
			&incident.TargetID,
			&incident.EntityType,
			&incident.EntityID,
			&incident.Status,
			&incident.BreachReason,
			&incident.OpenedAt,
			&incident.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}

		incidents = append(incidents, incident)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating incidents: %w", err)
	}

	return incidents, nil
}
