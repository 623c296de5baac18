package models

import "time"

// SlaTarget is a named rule describing a breach predicate over an entity type
// and a time threshold. Targets are operator-managed configuration.
type SlaTarget struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"              validate:"required,min=3"`
	EntityType       string    `json:"entity_type"       validate:"required"`
	ThresholdMinutes int       `json:"threshold_minutes" validate:"required,gt=0"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Threshold returns the breach threshold as a duration.
func (t *SlaTarget) Threshold() time.Duration {
	return time.Duration(t.ThresholdMinutes) * time.Minute
}

// IncidentStatus represents the lifecycle state of an SLA incident.
type IncidentStatus string

const (
	IncidentStatusOpen         IncidentStatus = "open"
	IncidentStatusAcknowledged IncidentStatus = "acknowledged"
	IncidentStatusResolved     IncidentStatus = "resolved"
)

// SlaIncident tracks one entity's active or past breach of one SLA target.
// At most one incident in {open, acknowledged} exists per (TargetID, EntityID)
// pair at any time; entity ids are scoped to their target, never globally.
// Incidents are engine-generated and retained after resolution for audit.
type SlaIncident struct {
	ID           string         `json:"id"`
	TargetID     string         `json:"target_id"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Status       IncidentStatus `json:"status"`
	BreachReason string         `json:"breach_reason"`
	OpenedAt     time.Time      `json:"opened_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
}

// IsOpen reports whether the incident still counts against the one-open-
// incident-per-entity invariant.
func (i *SlaIncident) IsOpen() bool {
	return i.Status == IncidentStatusOpen || i.Status == IncidentStatusAcknowledged
}
