// Package registry maintains the pluggable map from action type to handler.
// New action types are added by registration, not by editing dispatch code.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dukex/opsdesk/pkg/models"
)

// ErrActionNotRegistered indicates no factory is registered for an action
// type. Callers executing workflows treat this as a soft skip, never as a run
// failure.
var ErrActionNotRegistered = errors.New("action type not registered")

// Action executes one workflow step against the run's trigger payload.
type Action interface {
	Execute(ctx context.Context, payload models.Document) (models.Document, error)
}

// ActionFactory creates actions of one type from an operator-supplied
// configuration document.
type ActionFactory interface {
	// ID returns the action type key, matched against WorkflowAction.ActionType.
	ID() string
	// Name returns a human-readable name for the administrative UI.
	Name() string
	// Description returns a brief description of the action.
	Description() string
	// Create creates an action bound to the given configuration.
	Create(config models.Document) (Action, error)
	// Schema returns the JSON schema for the action configuration.
	Schema() map[string]any
}

// Registry holds the registered action factories.
type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]ActionFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		actionFactories: make(map[string]ActionFactory),
	}
}

// RegisterAction registers an action factory under its ID.
func (r *Registry) RegisterAction(factory ActionFactory) {
	r.actionFactories[factory.ID()] = factory
	r.logger.Debug("Registered action", "action_type", factory.ID())
}

// CreateAction creates an action of the given type bound to config. Returns
// ErrActionNotRegistered when the type is unknown.
func (r *Registry) CreateAction(actionType string, config models.Document) (Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotRegistered, actionType)
	}

	return factory.Create(config)
}

// ActionFactories returns the registered factories sorted by ID.
func (r *Registry) ActionFactories() []ActionFactory {
	factories := make([]ActionFactory, 0, len(r.actionFactories))
	for _, factory := range r.actionFactories {
		factories = append(factories, factory)
	}

	sort.Slice(factories, func(i, j int) bool {
		return factories[i].ID() < factories[j].ID()
	})

	return factories
}

// SkipResult builds the result document recorded when an action decides not
// to act. Skips count as successful results; they never fail a run.
func SkipResult(reason string) models.Document {
	return models.Document{
		"skipped": true,
		"reason":  reason,
	}
}

// NotImplementedResult builds the skip result recorded for unknown or
// unimplemented action types.
func NotImplementedResult(actionType string) models.Document {
	return SkipResult(fmt.Sprintf("Action %s not implemented", actionType))
}
