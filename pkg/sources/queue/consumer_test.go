package queue

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/opsdesk/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(Config{}, nil, testLogger())

	assert.Equal(t, "localhost:6379", c.config.Addr)
	assert.Equal(t, DefaultQueue, c.config.Queue)
}

func TestNewConsumerKeepsExplicitConfig(t *testing.T) {
	c := NewConsumer(Config{
		Addr:  "redis.internal:6380",
		DB:    2,
		Queue: "ingest:triggers",
	}, nil, testLogger())

	assert.Equal(t, "redis.internal:6380", c.config.Addr)
	assert.Equal(t, 2, c.config.DB)
	assert.Equal(t, "ingest:triggers", c.config.Queue)
}

func TestEnvelopeWireFormat(t *testing.T) {
	raw := `{"trigger_type":"appointment.created","payload":{"appointment_id":"a1"}}`

	var envelope Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))

	assert.Equal(t, "appointment.created", envelope.TriggerType)
	assert.Equal(t, models.Document{"appointment_id": "a1"}, envelope.Payload)
}
