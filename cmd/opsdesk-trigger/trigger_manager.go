package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/opsdesk/pkg/cmd"
	"github.com/dukex/opsdesk/pkg/dispatcher"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/sla"
	"github.com/dukex/opsdesk/pkg/sources/queue"
	"github.com/dukex/opsdesk/pkg/workflow"
)

type triggerConfig struct {
	eventBusProvider string
	redisAddr        string
	redisPassword    string
	queue            string
}

// TriggerManager runs the trigger ingress of one process: the event bus
// dispatcher and, when Redis is configured, the queue consumer. Both feed the
// same enqueuer.
type TriggerManager struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	config      triggerConfig
}

// NewTriggerManager creates a new TriggerManager.
func NewTriggerManager(p persistence.Persistence, logger *slog.Logger, config triggerConfig) *TriggerManager {
	return &TriggerManager{
		persistence: p,
		logger:      logger,
		config:      config,
	}
}

// Run starts the ingress paths and blocks until SIGINT or SIGTERM.
func (m *TriggerManager) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enqueuer := workflow.NewEnqueuer(m.persistence, m.logger)
	reconciler := sla.NewReconciler(m.persistence, m.logger)

	bus, err := cmd.NewEventBus(m.config.eventBusProvider, "opsdesk-trigger", m.logger)
	if err != nil {
		return err
	}

	defer func() {
		err := bus.Close()
		if err != nil {
			m.logger.Error("Failed to close event bus", "error", err)
		}
	}()

	d := dispatcher.NewDispatcher(bus, enqueuer, reconciler, m.logger)

	err = d.Start(ctx)
	if err != nil {
		return err
	}

	var consumer *queue.Consumer

	if m.config.redisAddr != "" {
		consumer = queue.NewConsumer(queue.Config{
			Addr:     m.config.redisAddr,
			Password: m.config.redisPassword,
			Queue:    m.config.queue,
		}, enqueuer, m.logger)

		err = consumer.Start(ctx)
		if err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "OpsDesk Trigger started",
		"event_bus", m.config.eventBusProvider,
		"queue_enabled", consumer != nil)

	<-ctx.Done()

	m.logger.Info("Shutting down OpsDesk Trigger")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		err = consumer.Stop(shutdownCtx)
		if err != nil {
			return err
		}
	}

	return nil
}
