package kafka

import (
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewProducer_WritesAsync(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, nil)
	defer p.Close()

	assert.True(t, p.writer.Async)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
	assert.NotNil(t, p.writer.Completion)
}

func TestProducer_CompletionLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewProducer([]string{"localhost:9092"}, zap.New(core))
	defer p.Close()

	messages := []kafka.Message{{Topic: "booking-events", Key: []byte("h-1")}, {Topic: "booking-events", Key: []byte("h-2")}}
	p.writer.Completion(messages, nil)
	assert.Zero(t, logs.Len())

	p.writer.Completion(messages, errors.New("broker down"))
	entries := logs.FilterMessage("kafka delivery failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "h-1", entries[0].ContextMap()["key"])
	assert.Equal(t, "booking-events", entries[1].ContextMap()["topic"])
}
