// Package janitor reports workflow runs stuck in the running state. A run
// whose executor died stays running forever; the janitor surfaces those for
// operators instead of reclaiming them, since re-running actions that may
// already have fired is worse than a loud report.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukex/opsdesk/pkg/persistence"
)

const (
	// DefaultSchedule runs the report every hour.
	DefaultSchedule = "@hourly"
	// DefaultStuckAfter is how long a run may stay running before it is
	// reported.
	DefaultStuckAfter = time.Hour
)

// Janitor periodically reports stuck runs on a cron schedule.
type Janitor struct {
	persistence persistence.RunRepository
	cron        *cron.Cron
	schedule    string
	stuckAfter  time.Duration
	logger      *slog.Logger
}

// NewJanitor creates a janitor with the given cron schedule. Empty schedule
// and zero stuckAfter fall back to the defaults.
func NewJanitor(p persistence.RunRepository, schedule string, stuckAfter time.Duration, logger *slog.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if stuckAfter <= 0 {
		stuckAfter = DefaultStuckAfter
	}

	return &Janitor{
		persistence: p,
		cron:        cron.New(),
		schedule:    schedule,
		stuckAfter:  stuckAfter,
		logger:      logger.With("module", "janitor"),
	}
}

// Start registers the report job and starts the cron scheduler.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.ReportStuckRuns(ctx)
	})
	if err != nil {
		return err
	}

	j.logger.InfoContext(ctx, "Starting janitor",
		"schedule", j.schedule,
		"stuck_after", j.stuckAfter)

	j.cron.Start()

	return nil
}

// Stop halts the cron scheduler and waits for a running job to finish.
func (j *Janitor) Stop(ctx context.Context) {
	stopCtx := j.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// ReportStuckRuns logs every run that has been running longer than the
// configured cutoff.
func (j *Janitor) ReportStuckRuns(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.stuckAfter)

	stuck, err := j.persistence.RunningRunsStartedBefore(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to load stuck runs", "error", err)

		return
	}

	if len(stuck) == 0 {
		return
	}

	j.logger.WarnContext(ctx, "Found stuck runs", "count", len(stuck))

	for _, run := range stuck {
		j.logger.WarnContext(ctx, "Run stuck in running state",
			"run_id", run.ID,
			"workflow_id", run.WorkflowID,
			"started_at", run.StartedAt)
	}
}
