// Package sla implements SLA breach monitoring: pluggable breach predicates
// per entity type, a reconciler that keeps the incident table in sync with the
// current breach set, and the periodic monitor driving both.
package sla

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/dukex/opsdesk/pkg/models"
)

// Checker evaluates one entity type's breach predicate. New entity types are
// supported by registering a checker, not by editing the monitor.
type Checker interface {
	// EntityType returns the entity type key, matched against
	// SlaTarget.EntityType.
	EntityType() string
	// BreachingEntities returns the ids of all entities breaching the
	// target's threshold at now.
	BreachingEntities(ctx context.Context, target *models.SlaTarget, now time.Time) ([]string, error)
}

// CheckerRegistry holds the registered breach checkers.
type CheckerRegistry struct {
	logger   *slog.Logger
	checkers map[string]Checker
}

// NewCheckerRegistry creates an empty checker registry.
func NewCheckerRegistry(logger *slog.Logger) *CheckerRegistry {
	return &CheckerRegistry{
		logger:   logger,
		checkers: make(map[string]Checker),
	}
}

// Register registers a checker under its entity type.
func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers[checker.EntityType()] = checker
	r.logger.Debug("Registered SLA checker", "entity_type", checker.EntityType())
}

// Checker returns the checker for the given entity type.
func (r *CheckerRegistry) Checker(entityType string) (Checker, bool) {
	checker, ok := r.checkers[entityType]

	return checker, ok
}

// EntityTypes returns the registered entity types sorted alphabetically.
func (r *CheckerRegistry) EntityTypes() []string {
	types := make([]string, 0, len(r.checkers))
	for entityType := range r.checkers {
		types = append(types, entityType)
	}

	sort.Strings(types)

	return types
}
