package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"go.uber.org/zap"
)

const (
	EventHoldCreated      = "hold_created"
	EventHoldCanceled     = "hold_canceled"
	EventHoldExpired      = "hold_expired"
	EventBookingConfirmed = "booking_confirmed"
)

// Event is the payload of every hold and booking lifecycle message.
type Event struct {
	Type       string     `json:"type"`
	HoldID     string     `json:"hold_id"`
	BookingID  string     `json:"booking_id,omitempty"`
	RoomTypeID int64      `json:"room_type_id"`
	CheckIn    string     `json:"check_in_date"`
	CheckOut   string     `json:"check_out_date"`
	Status     string     `json:"status"`
	GuestName  string     `json:"guest_name,omitempty"`
	Email      string     `json:"email,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func HoldEvent(eventType string, h domain.Hold, at time.Time) Event {
	expiresAt := h.ExpiresAt
	return Event{
		Type:       eventType,
		HoldID:     h.ID,
		RoomTypeID: h.RoomTypeID,
		CheckIn:    domain.FormatDate(h.CheckIn),
		CheckOut:   domain.FormatDate(h.CheckOut),
		Status:     string(h.Status),
		ExpiresAt:  &expiresAt,
		OccurredAt: at,
	}
}

func BookingEvent(b domain.Booking, at time.Time) Event {
	e := Event{
		Type:       EventBookingConfirmed,
		HoldID:     b.HoldID,
		BookingID:  b.ID,
		RoomTypeID: b.RoomTypeID,
		CheckIn:    domain.FormatDate(b.CheckIn),
		CheckOut:   domain.FormatDate(b.CheckOut),
		Status:     string(b.Status),
		OccurredAt: at,
	}
	if len(b.Guests) > 0 {
		e.GuestName = b.Guests[0].Name
		e.Email = b.Guests[0].Email
	}
	return e
}

func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// MessageProducer writes one JSON message to a topic.
type MessageProducer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Publisher sends every event to the booking events topic and booking
// confirmations to the notifications topic as well. Messages are keyed by
// hold id so a hold's events stay ordered within a partition.
type Publisher struct {
	producer           MessageProducer
	eventsTopic        string
	notificationsTopic string
	logger             *zap.Logger
}

func NewPublisher(producer MessageProducer, eventsTopic, notificationsTopic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		producer:           producer,
		eventsTopic:        eventsTopic,
		notificationsTopic: notificationsTopic,
		logger:             logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p.eventsTopic != "" {
		if err := p.producer.Publish(ctx, p.eventsTopic, event.HoldID, event); err != nil {
			return err
		}
	}
	if event.Type == EventBookingConfirmed && p.notificationsTopic != "" {
		if err := p.producer.Publish(ctx, p.notificationsTopic, event.HoldID, event); err != nil {
			return err
		}
	}
	p.logger.Debug("event queued", zap.String("type", event.Type), zap.String("hold_id", event.HoldID))
	return nil
}
