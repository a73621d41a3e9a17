package bootstrap

import (
	"context"
	"testing"

	"github.com/Domenick1991/roomhold/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpenPublisher_NoBrokers(t *testing.T) {
	publisher, closeFn := OpenPublisher(context.Background(), config.KafkaConfig{}, zap.NewNop())
	assert.Nil(t, publisher)
	closeFn()
}

func TestOpenPublisher_UnreachableBrokerIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, BookingEventsTopic: "booking-events"}

	publisher, closeFn := OpenPublisher(context.Background(), cfg, zap.New(core))
	defer closeFn()

	require.NotNil(t, publisher)
	assert.Equal(t, 1, logs.FilterMessage("kafka unreachable, events will be retried by the writer").Len())
}

func TestOpenCache_Disabled(t *testing.T) {
	assert.Nil(t, OpenCache(context.Background(), config.RedisConfig{}, zap.NewNop()))
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := config.Default()
	store, closeFn, err := OpenStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.NoError(t, store.Ping(context.Background()))
}
