package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/opsdesk/pkg/cmd"
	"github.com/dukex/opsdesk/pkg/janitor"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/sla"
	"github.com/dukex/opsdesk/pkg/workflow"
)

type engineConfig struct {
	runPollIntervalMs       int
	slaPollIntervalMs       int
	janitorSchedule         string
	janitorStuckAfterMinute int
}

// Engine owns the long-running components of one engine process: the run
// scheduler, the SLA monitor and the stuck-run janitor.
type Engine struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	config      engineConfig

	scheduler *workflow.Scheduler
	monitor   *sla.Monitor
	janitor   *janitor.Janitor
}

// NewEngine wires the engine components together. A nil tracer disables
// tracing.
func NewEngine(p persistence.Persistence, tracer trace.Tracer, logger *slog.Logger, config engineConfig) *Engine {
	registry := cmd.NewRegistry(p, logger)
	executor := workflow.NewExecutor(p, registry, tracer, logger)
	scheduler := workflow.NewScheduler(p, executor,
		time.Duration(config.runPollIntervalMs)*time.Millisecond, logger)

	checkers := sla.NewCheckerRegistry(logger)
	checkers.Register(sla.NewPendingAppointmentChecker(p))
	checkers.Register(sla.NewUnansweredChatChecker(p))

	reconciler := sla.NewReconciler(p, logger)
	monitor := sla.NewMonitor(p, checkers, reconciler,
		time.Duration(config.slaPollIntervalMs)*time.Millisecond, logger)

	j := janitor.NewJanitor(p, config.janitorSchedule,
		time.Duration(config.janitorStuckAfterMinute)*time.Minute, logger)

	return &Engine{
		persistence: p,
		logger:      logger,
		config:      config,
		scheduler:   scheduler,
		monitor:     monitor,
		janitor:     j,
	}
}

// Run starts all components and blocks until the process receives SIGINT or
// SIGTERM.
func (e *Engine) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e.scheduler.Start(ctx)
	e.monitor.Start(ctx)

	err := e.janitor.Start(ctx)
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "OpsDesk Engine started",
		"run_poll_interval_ms", e.config.runPollIntervalMs,
		"sla_poll_interval_ms", e.config.slaPollIntervalMs)

	<-ctx.Done()

	e.logger.Info("Shutting down OpsDesk Engine")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e.scheduler.Stop(shutdownCtx)
	e.monitor.Stop(shutdownCtx)
	e.janitor.Stop(shutdownCtx)

	return nil
}
