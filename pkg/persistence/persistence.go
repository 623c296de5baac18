// Package persistence provides the data storage abstraction layer for
// workflows, runs, SLA targets, incidents and the operational entities the
// engine monitors. All engine mutation goes through conditional, single-row
// statements; there is no multi-statement transaction spanning the claim,
// execute and finalize steps of a run.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/opsdesk/pkg/models"
)

// RunFilter narrows run listings for the administrative read surface.
type RunFilter struct {
	WorkflowID string
	Status     models.RunStatus
	Limit      int
}

// IncidentFilter narrows incident listings for the administrative read surface.
type IncidentFilter struct {
	TargetID string
	Status   models.IncidentStatus
	Limit    int
}

// WorkflowRepository stores operator-managed workflow configuration.
type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	// ActiveWorkflowsByTrigger returns the active workflows subscribed to the
	// given trigger type.
	ActiveWorkflowsByTrigger(ctx context.Context, triggerType string) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	// WorkflowActions returns the workflow's actions ordered by position,
	// ties broken by insertion order.
	WorkflowActions(ctx context.Context, workflowID string) ([]*models.WorkflowAction, error)
	SaveWorkflowAction(ctx context.Context, action *models.WorkflowAction) error
	DeleteWorkflowAction(ctx context.Context, id string) error
}

// RunRepository stores engine-generated workflow runs. Runs are never deleted.
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.WorkflowRun) error
	RunByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	Runs(ctx context.Context, filter RunFilter) ([]*models.WorkflowRun, error)

	// DueRuns returns up to limit queued runs whose workflow delay deadline
	// (queued_at + minutes_delay) has passed, oldest first.
	DueRuns(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowRun, error)

	// ClaimRun transitions a run from queued to running with a conditional
	// update. The returned bool reports whether this caller won the claim;
	// false means the row was no longer queued.
	ClaimRun(ctx context.Context, id string, startedAt time.Time) (bool, error)

	CompleteRun(ctx context.Context, id string, completedAt time.Time, results []models.ActionResult) error
	FailRun(ctx context.Context, id string, completedAt time.Time, errorMessage string) error

	// RunningRunsStartedBefore returns runs stuck in running since before the
	// cutoff, for operator reporting.
	RunningRunsStartedBefore(ctx context.Context, cutoff time.Time) ([]*models.WorkflowRun, error)
}

// SlaRepository stores SLA targets and their incidents.
type SlaRepository interface {
	SlaTargets(ctx context.Context) ([]*models.SlaTarget, error)
	ActiveSlaTargets(ctx context.Context) ([]*models.SlaTarget, error)
	SlaTargetByID(ctx context.Context, id string) (*models.SlaTarget, error)
	SaveSlaTarget(ctx context.Context, target *models.SlaTarget) error

	Incidents(ctx context.Context, filter IncidentFilter) ([]*models.SlaIncident, error)
	// OpenIncidentsForTarget returns the target's incidents in open or
	// acknowledged state.
	OpenIncidentsForTarget(ctx context.Context, targetID string) ([]*models.SlaIncident, error)
	// OpenIncidentsForEntity returns open or acknowledged incidents for the
	// exact entity across all targets.
	OpenIncidentsForEntity(ctx context.Context, entityType, entityID string) ([]*models.SlaIncident, error)
	CreateIncident(ctx context.Context, incident *models.SlaIncident) error
	ResolveIncident(ctx context.Context, id string, resolvedAt time.Time) error
}

// EntityRepository exposes the operational entities that breach predicates
// read and the update_status action mutates.
type EntityRepository interface {
	AppointmentByID(ctx context.Context, id string) (*models.Appointment, error)
	SaveAppointment(ctx context.Context, appointment *models.Appointment) error
	// UpdateAppointmentStatus overwrites the status without an existence
	// check; updating a missing appointment is not an error.
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
	// OverduePendingAppointments returns pending appointments scheduled at or
	// before the cutoff.
	OverduePendingAppointments(ctx context.Context, cutoff time.Time) ([]*models.Appointment, error)

	SaveConversation(ctx context.Context, conversation *models.Conversation) error
	SaveMessage(ctx context.Context, message *models.Message) error
	// IdleConversations returns conversations whose most recent message (ties
	// broken by latest created_at) is at or before the cutoff.
	IdleConversations(ctx context.Context, cutoff time.Time) ([]*models.Conversation, error)
}

// NotificationRepository stores notifications and user channel preferences on
// behalf of the notification gateway.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	MarkNotificationSent(ctx context.Context, id string, channels []string) error
	Notifications(ctx context.Context, userID string) ([]*models.Notification, error)

	// UserChannelPreference returns the user's channel preference, or the
	// all-channels-enabled default when none is stored.
	UserChannelPreference(ctx context.Context, userID string) (*models.UserChannelPreference, error)
	SaveUserChannelPreference(ctx context.Context, preference *models.UserChannelPreference) error
}

type Persistence interface {
	WorkflowRepository
	RunRepository
	SlaRepository
	EntityRepository
	NotificationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
