package email

import (
	"context"

	"github.com/Domenick1991/roomhold/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers guest notifications. Delivery is a structured log line until
// a mail provider is configured.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

// Send handles one notification event. Events other than booking
// confirmations, and confirmations without an address, are ignored.
func (s *Sender) Send(ctx context.Context, event kafka.Event) error {
	if event.Type != kafka.EventBookingConfirmed || event.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("booking confirmation sent",
		zap.String("to", event.Email),
		zap.String("guest", event.GuestName),
		zap.String("booking_id", event.BookingID),
		zap.Int64("room_type_id", event.RoomTypeID),
		zap.String("check_in", event.CheckIn),
		zap.String("check_out", event.CheckOut),
	)
	return nil
}
