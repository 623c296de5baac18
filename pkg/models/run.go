package models

import "time"

// RunStatus represents the lifecycle state of a workflow run. Transitions are
// strictly forward: queued -> running -> completed or failed. A run never
// re-enters queued.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ActionResult is the recorded outcome of one executed action.
type ActionResult struct {
	ActionType string   `json:"action_type"`
	Result     Document `json:"result"`
}

// WorkflowRun is one queued, executing or finished instance of a workflow.
// TriggerPayload is a snapshot taken at enqueue time; later workflow edits do
// not affect in-flight runs. Runs are engine-generated and never deleted.
type WorkflowRun struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	TriggerPayload Document       `json:"trigger_payload"`
	Status         RunStatus      `json:"status"`
	QueuedAt       time.Time      `json:"queued_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	ResultPayload  []ActionResult `json:"result_payload,omitempty"` // set only on successful completion
	ErrorMessage   string         `json:"error_message,omitempty"`  // set only on failure
}
