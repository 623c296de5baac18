// Package poller provides the periodic tick loop shared by the run scheduler
// and the SLA monitor. Each poller owns its lifecycle and serializes against
// its own firing: when the previous tick is still in flight the new firing is
// dropped entirely, not queued and not delayed.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TickFunc is one firing of the periodic loop. Implementations handle their
// own errors; a tick cannot abort the loop.
type TickFunc func(ctx context.Context)

// Poller runs a TickFunc on a fixed interval with a single-in-flight guard.
type Poller struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   *slog.Logger

	ticker  *time.Ticker
	done    chan struct{}
	started bool
	busy    atomic.Bool
	mu      sync.Mutex
}

// New creates a poller. The interval must be positive.
func New(name string, interval time.Duration, logger *slog.Logger, tick TickFunc) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger.With("module", "poller", "poller", name),
	}
}

// Start begins the periodic loop. Starting a started poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.logger.InfoContext(ctx, "Starting poller", "interval", p.interval)

	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.started = true

	go p.loop(ctx)
}

// Stop halts the ticker. An in-flight tick is not drained; it keeps whatever
// state it reaches.
func (p *Poller) Stop(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.logger.InfoContext(ctx, "Stopping poller")

	p.ticker.Stop()
	close(p.done)
	p.started = false
}

func (p *Poller) loop(ctx context.Context) {
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-p.ticker.C:
			p.Fire(ctx)
		}
	}
}

// Fire runs one tick immediately, subject to the same single-in-flight guard
// as timer firings. The guard is released on every exit path.
func (p *Poller) Fire(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.logger.DebugContext(ctx, "Previous tick still in flight, dropping firing")

		return
	}

	defer p.busy.Store(false)

	p.tick(ctx)
}
