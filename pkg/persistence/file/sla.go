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

// SlaTargets returns all SLA targets, newest first.
func (p *Persistence) SlaTargets(_ context.Context) ([]*models.SlaTarget, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	targets, err := readAll[models.SlaTarget](p, collectionSlaTargets)
	if err != nil {
		return nil, err
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].CreatedAt.After(targets[j].CreatedAt)
	})

	return targets, nil
}

// ActiveSlaTargets returns the targets the monitor evaluates each tick.
func (p *Persistence) ActiveSlaTargets(_ context.Context) ([]*models.SlaTarget, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	targets, err := readAll[models.SlaTarget](p, collectionSlaTargets)
	if err != nil {
		return nil, err
	}

	active := make([]*models.SlaTarget, 0)

	for _, target := range targets {
		if target.IsActive {
			active = append(active, target)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	return active, nil
}

// SlaTargetByID returns an SLA target by its ID.
func (p *Persistence) SlaTargetByID(_ context.Context, id string) (*models.SlaTarget, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	target := &models.SlaTarget{}

	found, err := p.readInto(collectionSlaTargets, id, target)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewStoreError("SlaTargetByID", "sla_target", id, persistence.ErrSlaTargetNotFound)
	}

	return target, nil
}

// SaveSlaTarget inserts or updates an SLA target.
func (p *Persistence) SaveSlaTarget(_ context.Context, target *models.SlaTarget) error {
	p.mu.Lock()
	defer p.mu.Unlock()

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

	return p.write(collectionSlaTargets, target.ID, target)
}

// Incidents returns incidents matching the filter, newest first.
func (p *Persistence) Incidents(_ context.Context, filter persistence.IncidentFilter) ([]*models.SlaIncident, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	incidents, err := readAll[models.SlaIncident](p, collectionIncidents)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.SlaIncident, 0)

	for _, incident := range incidents {
		if filter.TargetID != "" && incident.TargetID != filter.TargetID {
			continue
		}

		if filter.Status != "" && incident.Status != filter.Status {
			continue
		}

		matched = append(matched, incident)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OpenedAt.After(matched[j].OpenedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// OpenIncidentsForTarget returns the target's open and acknowledged incidents.
func (p *Persistence) OpenIncidentsForTarget(_ context.Context, targetID string) ([]*models.SlaIncident, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	incidents, err := readAll[models.SlaIncident](p, collectionIncidents)
	if err != nil {
		return nil, err
	}

	open := make([]*models.SlaIncident, 0)

	for _, incident := range incidents {
		if incident.TargetID == targetID && incident.IsOpen() {
			open = append(open, incident)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].OpenedAt.Before(open[j].OpenedAt)
	})

	return open, nil
}

// OpenIncidentsForEntity returns open and acknowledged incidents for the
// exact entity across all targets.
func (p *Persistence) OpenIncidentsForEntity(_ context.Context, entityType, entityID string) ([]*models.SlaIncident, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	incidents, err := readAll[models.SlaIncident](p, collectionIncidents)
	if err != nil {
		return nil, err
	}

	open := make([]*models.SlaIncident, 0)

	for _, incident := range incidents {
		if incident.EntityType == entityType && incident.EntityID == entityID && incident.IsOpen() {
			open = append(open, incident)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].OpenedAt.Before(open[j].OpenedAt)
	})

	return open, nil
}

// CreateIncident inserts a new incident.
func (p *Persistence) CreateIncident(_ context.Context, incident *models.SlaIncident) error {
	p.mu.Lock()
	defer p.mu.Unlock()

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

	return p.write(collectionIncidents, incident.ID, incident)
}

// ResolveIncident transitions an open or acknowledged incident to resolved.
func (p *Persistence) ResolveIncident(_ context.Context, id string, resolvedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	incident := &models.SlaIncident{}

	found, err := p.readInto(collectionIncidents, id, incident)
	if err != nil {
		return err
	}

	if !found || !incident.IsOpen() {
		return persistence.NewStoreError("ResolveIncident", "incident", id, persistence.ErrIncidentNotFound)
	}

	incident.Status = models.IncidentStatusResolved
	incident.ResolvedAt = &resolvedAt

	return p.write(collectionIncidents, id, incident)
}
