package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/roomhold/internal/kafka"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSender_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSender(zap.New(core))

	err := s.Send(context.Background(), kafka.Event{Type: kafka.EventBookingConfirmed, BookingID: "b-1", Email: "ada@example.com"})
	assert.NoError(t, err)
	assert.NoError(t, s.Send(context.Background(), kafka.Event{Type: kafka.EventHoldCreated, Email: "ada@example.com"}))
	assert.NoError(t, s.Send(context.Background(), kafka.Event{Type: kafka.EventBookingConfirmed}))

	entries := logs.FilterMessage("booking confirmation sent").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "ada@example.com", entries[0].ContextMap()["to"])
	}
}

func TestSender_SendCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSender(nil).Send(ctx, kafka.Event{Type: kafka.EventBookingConfirmed, Email: "ada@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
