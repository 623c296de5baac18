package sla

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/poller"
)

// DefaultPollInterval is how often the monitor evaluates active SLA targets.
const DefaultPollInterval = time.Minute

// Monitor periodically evaluates every active SLA target: it asks the
// target's checker for the current breach set and hands the result to the
// reconciler. A pass is fail-fast: the first error ends it, leaving the
// remaining targets for the next one.
type Monitor struct {
	persistence persistence.Persistence
	checkers    *CheckerRegistry
	reconciler  *Reconciler
	poller      *poller.Poller
	logger      *slog.Logger
}

// NewMonitor creates a monitor polling at the given interval.
func NewMonitor(p persistence.Persistence, checkers *CheckerRegistry, reconciler *Reconciler, interval time.Duration, logger *slog.Logger) *Monitor {
	m := &Monitor{
		persistence: p,
		checkers:    checkers,
		reconciler:  reconciler,
		logger:      logger.With("module", "sla_monitor"),
	}
	m.poller = poller.New("sla_monitor", interval, logger, m.Tick)

	return m
}

// Start begins polling. Ticks that fire while a previous pass is still
// running are dropped.
func (m *Monitor) Start(ctx context.Context) {
	m.poller.Start(ctx)
}

// Stop halts polling.
func (m *Monitor) Stop(ctx context.Context) {
	m.poller.Stop(ctx)
}

// Tick performs one monitoring pass over all active targets.
func (m *Monitor) Tick(ctx context.Context) {
	targets, err := m.persistence.ActiveSlaTargets(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load SLA targets", "error", err)

		return
	}

	now := time.Now().UTC()

	for _, target := range targets {
		err := m.EvaluateTarget(ctx, target, now)
		if err != nil {
			m.logger.ErrorContext(ctx, "Aborting pass on target evaluation error",
				"target_id", target.ID,
				"error", err)

			return
		}
	}
}

// EvaluateTarget runs one target's breach check and reconciles its incidents.
// Targets with no registered checker are skipped, not failed.
func (m *Monitor) EvaluateTarget(ctx context.Context, target *models.SlaTarget, now time.Time) error {
	checker, ok := m.checkers.Checker(target.EntityType)
	if !ok {
		m.logger.WarnContext(ctx, "No checker for entity type, skipping target",
			"target_id", target.ID,
			"entity_type", target.EntityType)

		return nil
	}

	breaching, err := checker.BreachingEntities(ctx, target, now)
	if err != nil {
		return err
	}

	return m.reconciler.Reconcile(ctx, target, breaching, now)
}
