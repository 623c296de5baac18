// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowActionNotFound indicates a workflow action was not found by the given identifier.
	ErrWorkflowActionNotFound = errors.New("workflow action not found")

	// ErrRunNotFound indicates a workflow run was not found by the given identifier.
	ErrRunNotFound = errors.New("workflow run not found")

	// ErrSlaTargetNotFound indicates an SLA target was not found by the given identifier.
	ErrSlaTargetNotFound = errors.New("sla target not found")

	// ErrIncidentNotFound indicates an SLA incident was not found by the given identifier.
	ErrIncidentNotFound = errors.New("sla incident not found")

	// ErrAppointmentNotFound indicates an appointment was not found by the given identifier.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrNotificationNotFound indicates a notification was not found by the given identifier.
	ErrNotificationNotFound = errors.New("notification not found")
)

// StoreError wraps persistence errors with operation context.
type StoreError struct {
	Op     string // Operation being performed (e.g., "ClaimRun", "SaveWorkflow")
	Entity string // Entity kind (e.g., "workflow", "run", "incident")
	ID     string // Entity ID if applicable
	Err    error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, entity, id string, err error) *StoreError {
	return &StoreError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowActionNotFound checks if an error indicates a workflow action was not found.
func IsWorkflowActionNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowActionNotFound)
}

// IsRunNotFound checks if an error indicates a workflow run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsSlaTargetNotFound checks if an error indicates an SLA target was not found.
func IsSlaTargetNotFound(err error) bool {
	return errors.Is(err, ErrSlaTargetNotFound)
}

// IsIncidentNotFound checks if an error indicates an SLA incident was not found.
func IsIncidentNotFound(err error) bool {
	return errors.Is(err, ErrIncidentNotFound)
}
