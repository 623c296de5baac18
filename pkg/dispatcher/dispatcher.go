// Package dispatcher wires bus-delivered domain events into the engine:
// every event fans out to subscribed workflows, and settlement events also
// close the entity's open SLA incidents.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/opsdesk/pkg/eventbus"
	"github.com/dukex/opsdesk/pkg/events"
	"github.com/dukex/opsdesk/pkg/sla"
	"github.com/dukex/opsdesk/pkg/workflow"
)

// Dispatcher subscribes to the event bus and routes each event type to its
// engine-side effects.
type Dispatcher struct {
	bus        eventbus.EventBus
	enqueuer   *workflow.Enqueuer
	reconciler *sla.Reconciler
	logger     *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(bus eventbus.EventBus, enqueuer *workflow.Enqueuer, reconciler *sla.Reconciler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:        bus,
		enqueuer:   enqueuer,
		reconciler: reconciler,
		logger:     logger.With("module", "dispatcher"),
	}
}

// Start registers the event handlers and begins consuming from the bus.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.bus.Handle(events.AppointmentCreatedEvent, d.handleAppointmentCreated)
	if err != nil {
		return err
	}

	err = d.bus.Handle(events.AppointmentCompletedEvent, d.handleAppointmentCompleted)
	if err != nil {
		return err
	}

	err = d.bus.Handle(events.MessageReceivedEvent, d.handleMessageReceived)
	if err != nil {
		return err
	}

	return d.bus.Subscribe(ctx)
}

func (d *Dispatcher) handleAppointmentCreated(ctx context.Context, event any) error {
	created, ok := event.(*events.AppointmentCreated)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", events.AppointmentCreatedEvent)
	}

	_, err := d.enqueuer.EnqueueTrigger(ctx, string(events.AppointmentCreatedEvent), created.TriggerPayload())

	return err
}

// handleAppointmentCompleted fans the event out like any other trigger and
// settles open incidents for the appointment, so resolution does not wait for
// the next monitor pass.
func (d *Dispatcher) handleAppointmentCompleted(ctx context.Context, event any) error {
	completed, ok := event.(*events.AppointmentCompleted)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", events.AppointmentCompletedEvent)
	}

	_, err := d.enqueuer.EnqueueTrigger(ctx, string(events.AppointmentCompletedEvent), completed.TriggerPayload())
	if err != nil {
		return err
	}

	return d.reconciler.CloseIncidentsForEntity(ctx, sla.EntityTypeAppointmentPending, completed.AppointmentID)
}

func (d *Dispatcher) handleMessageReceived(ctx context.Context, event any) error {
	received, ok := event.(*events.MessageReceived)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", events.MessageReceivedEvent)
	}

	_, err := d.enqueuer.EnqueueTrigger(ctx, string(events.MessageReceivedEvent), received.TriggerPayload())

	return err
}
