package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/poller"
)

const (
	// DefaultPollInterval is how often the scheduler looks for due runs.
	DefaultPollInterval = 15 * time.Second
	// DefaultBatchSize caps how many due runs one tick picks up.
	DefaultBatchSize = 10
)

// Scheduler polls for due queued runs and hands them to the executor one at a
// time, oldest first. A failed run does not stop the batch; a storage error
// ends the tick early and leaves the rest for the next one.
type Scheduler struct {
	persistence persistence.Persistence
	executor    *Executor
	poller      *poller.Poller
	batchSize   int
	logger      *slog.Logger
}

// NewScheduler creates a scheduler polling at the given interval.
func NewScheduler(p persistence.Persistence, executor *Executor, interval time.Duration, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		persistence: p,
		executor:    executor,
		batchSize:   DefaultBatchSize,
		logger:      logger.With("module", "scheduler"),
	}
	s.poller = poller.New("run_scheduler", interval, logger, s.Tick)

	return s
}

// Start begins polling. Ticks that fire while a previous tick is still
// executing are dropped.
func (s *Scheduler) Start(ctx context.Context) {
	s.poller.Start(ctx)
}

// Stop halts polling. In-flight runs keep whatever state they reach.
func (s *Scheduler) Stop(ctx context.Context) {
	s.poller.Stop(ctx)
}

// Tick performs one scheduling pass.
func (s *Scheduler) Tick(ctx context.Context) {
	due, err := s.persistence.DueRuns(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load due runs", "error", err)

		return
	}

	if len(due) == 0 {
		return
	}

	s.logger.DebugContext(ctx, "Picked up due runs", "count", len(due))

	for _, run := range due {
		err := s.executor.ExecuteRun(ctx, run)
		if err != nil {
			s.logger.ErrorContext(ctx, "Aborting tick on storage error",
				"run_id", run.ID,
				"error", err)

			return
		}
	}
}
