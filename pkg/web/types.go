package web

import "github.com/dukex/opsdesk/pkg/models"

// CreateWorkflowRequest is the payload for creating a workflow.
type CreateWorkflowRequest struct {
	Name         string `json:"name"          validate:"required,min=3"`
	TriggerType  string `json:"trigger_type"  validate:"required"`
	MinutesDelay *int   `json:"minutes_delay" validate:"omitempty,gte=0"`
	IsActive     bool   `json:"is_active"`
}

// UpdateWorkflowRequest is the payload for partially updating a workflow.
// Nil fields are left unchanged.
type UpdateWorkflowRequest struct {
	Name         *string `json:"name"          validate:"omitempty,min=3"`
	TriggerType  *string `json:"trigger_type"  validate:"omitempty,min=1"`
	MinutesDelay *int    `json:"minutes_delay" validate:"omitempty,gte=0"`
	IsActive     *bool   `json:"is_active"`
}

// CreateActionRequest is the payload for appending an action to a workflow.
type CreateActionRequest struct {
	ActionType   string          `json:"action_type" validate:"required"`
	ActionConfig models.Document `json:"action_config"`
	Position     int             `json:"position"    validate:"gte=0"`
}

// CreateSlaTargetRequest is the payload for creating an SLA target.
type CreateSlaTargetRequest struct {
	Name             string `json:"name"              validate:"required,min=3"`
	EntityType       string `json:"entity_type"       validate:"required"`
	ThresholdMinutes int    `json:"threshold_minutes" validate:"required,gt=0"`
	IsActive         bool   `json:"is_active"`
}

// UpdateSlaTargetRequest is the payload for partially updating an SLA target.
type UpdateSlaTargetRequest struct {
	Name             *string `json:"name"              validate:"omitempty,min=3"`
	ThresholdMinutes *int    `json:"threshold_minutes" validate:"omitempty,gt=0"`
	IsActive         *bool   `json:"is_active"`
}

// EnqueueTriggerRequest is the payload for firing a trigger by hand.
type EnqueueTriggerRequest struct {
	TriggerType string          `json:"trigger_type" validate:"required"`
	Payload     models.Document `json:"payload"`
}

// ActionFactoryResponse describes a registered action type.
type ActionFactoryResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}
