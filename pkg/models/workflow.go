// Package models defines the core domain models for the back-office automation engine.
package models

import "time"

// Workflow maps a trigger type to an ordered list of actions, optionally
// executed after a configured delay.
type Workflow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"          validate:"required,min=3"`
	TriggerType  string    `json:"trigger_type"  validate:"required"`
	MinutesDelay *int      `json:"minutes_delay,omitempty"` // nil or 0 means eligible immediately
	IsActive     bool      `json:"is_active"`
	Actions      []*WorkflowAction `json:"actions,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Delay returns the configured delay, treating nil as zero.
func (w *Workflow) Delay() time.Duration {
	if w.MinutesDelay == nil {
		return 0
	}

	return time.Duration(*w.MinutesDelay) * time.Minute
}

// WorkflowAction is one step of a workflow's effect list. A workflow
// exclusively owns its ordered action list; ordering is by Position with ties
// broken by insertion order.
type WorkflowAction struct {
	ID           string    `json:"id"`
	WorkflowID   string    `json:"workflow_id"`
	ActionType   string    `json:"action_type" validate:"required"`
	ActionConfig Document  `json:"action_config"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}
