package poller

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFireRunsTick(t *testing.T) {
	var calls atomic.Int32

	p := New("test", time.Hour, testLogger(), func(_ context.Context) {
		calls.Add(1)
	})

	p.Fire(context.Background())
	p.Fire(context.Background())

	assert.Equal(t, int32(2), calls.Load())
}

func TestFireDropsOverlappingFiring(t *testing.T) {
	var calls atomic.Int32

	entered := make(chan struct{})
	release := make(chan struct{})

	var enteredOnce sync.Once

	p := New("test", time.Hour, testLogger(), func(_ context.Context) {
		calls.Add(1)
		enteredOnce.Do(func() { close(entered) })
		<-release
	})

	go p.Fire(context.Background())
	<-entered

	// The first tick is still in flight, so this firing must be dropped.
	p.Fire(context.Background())
	assert.Equal(t, int32(1), calls.Load())

	close(release)

	assert.Eventually(t, func() bool {
		p.Fire(context.Background())

		return calls.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestStartAndStop(t *testing.T) {
	var calls atomic.Int32

	p := New("test", 10*time.Millisecond, testLogger(), func(_ context.Context) {
		calls.Add(1)
	})

	ctx := context.Background()

	p.Start(ctx)
	// Start is idempotent.
	p.Start(ctx)

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	p.Stop(ctx)
	p.Stop(ctx)

	settled := calls.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())
}
