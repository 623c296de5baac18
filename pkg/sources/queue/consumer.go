// Package queue consumes trigger envelopes from a Redis list and feeds them
// into the engine. It exists for producers that cannot publish to the event
// bus: they RPUSH a JSON envelope and the consumer turns it into queued runs.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/dukex/opsdesk/pkg/models"
)

const (
	// DefaultQueue is the Redis list polled when none is configured.
	DefaultQueue = "opsdesk:triggers"

	popTimeout     = 1 * time.Second
	connectTimeout = 5 * time.Second
)

// Enqueuer is the engine-side sink for consumed envelopes.
type Enqueuer interface {
	EnqueueTrigger(ctx context.Context, triggerType string, payload models.Document) ([]*models.WorkflowRun, error)
}

// Envelope is the wire format producers push onto the list.
type Envelope struct {
	TriggerType string          `json:"trigger_type"`
	Payload     models.Document `json:"payload,omitempty"`
}

// Config holds the Redis connection settings for the consumer.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// Consumer blocks on the Redis list and enqueues each envelope sequentially.
// A malformed envelope is dropped with a log line; it never stops the loop.
type Consumer struct {
	config   Config
	enqueuer Enqueuer
	client   redis.UniversalClient
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewConsumer creates a new Consumer.
func NewConsumer(config Config, enqueuer Enqueuer, logger *slog.Logger) *Consumer {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	if config.Queue == "" {
		config.Queue = DefaultQueue
	}

	return &Consumer{
		config:   config,
		enqueuer: enqueuer,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "queue_consumer",
			"queue", config.Queue,
		),
	}
}

// Start connects to Redis and begins consuming in a background goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	c.client = redis.NewClient(&redis.Options{
		Addr:     c.config.Addr,
		Password: c.config.Password,
		DB:       c.config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err := c.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", c.config.Addr, "db", c.config.DB)

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	c.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := c.processMessage(ctx)
			if err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, popTimeout, c.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var envelope Envelope

	err = json.Unmarshal([]byte(message), &envelope)
	if err != nil {
		c.logger.WarnContext(ctx, "Dropping malformed envelope", "error", err)

		return nil
	}

	if envelope.TriggerType == "" {
		c.logger.WarnContext(ctx, "Dropping envelope without trigger_type")

		return nil
	}

	runs, err := c.enqueuer.EnqueueTrigger(ctx, envelope.TriggerType, envelope.Payload)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Consumed trigger envelope",
		"trigger_type", envelope.TriggerType,
		"runs", len(runs))

	return nil
}

// Stop halts the consumer and closes the Redis connection.
func (c *Consumer) Stop(ctx context.Context) error {
	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		err := c.client.Close()
		if err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
