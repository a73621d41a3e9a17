// Package booking turns active holds into confirmed bookings.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/roomhold/internal/clock"
	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/kafka"
	"github.com/Domenick1991/roomhold/internal/metrics"
	"github.com/Domenick1991/roomhold/internal/repository"
	"github.com/Domenick1991/roomhold/internal/service/inventory"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("roomhold/booking")

type BookingUseCase interface {
	ConfirmBooking(ctx context.Context, input ConfirmBookingInput) (domain.Booking, error)
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
}

type Store interface {
	repository.Transactor
	repository.RoomTypeRepository
	repository.HoldRepository
	repository.BookingRepository
}

// HoldReleaser returns the counts of a hold whose row lock the caller holds.
type HoldReleaser interface {
	ReleaseLocked(ctx context.Context, h *domain.Hold, status domain.HoldStatus, at time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type BookingService struct {
	store     Store
	ledger    *inventory.Ledger
	holds     HoldReleaser
	clock     clock.Clock
	publisher EventPublisher
	logger    *zap.Logger
}

type BookingServiceOption func(*BookingService)

func WithPublisher(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.publisher = p
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		if c != nil {
			s.clock = c
		}
	}
}

func NewBookingService(store Store, ledger *inventory.Ledger, holds HoldReleaser, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		store:  store,
		ledger: ledger,
		holds:  holds,
		clock:  clock.NewSystem(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type ConfirmBookingInput struct {
	HoldID        string         `json:"hold_id"`
	Guests        []domain.Guest `json:"guest_details"`
	PaymentMethod string         `json:"payment_method"`
}

func (in ConfirmBookingInput) validate() error {
	if strings.TrimSpace(in.HoldID) == "" {
		return domain.ErrHoldNotFound
	}
	if len(in.Guests) == 0 {
		return domain.ErrGuestDetails
	}
	lead := in.Guests[0]
	if strings.TrimSpace(lead.Name) == "" || !strings.Contains(lead.Email, "@") {
		return domain.ErrGuestDetails
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return domain.ErrPaymentMethod
	}
	return nil
}

// ConfirmBooking converts an active hold into a booking in one transaction.
// A hold found past its deadline is expired and its counts released before
// ErrHoldExpired is returned.
func (s *BookingService) ConfirmBooking(ctx context.Context, input ConfirmBookingInput) (domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.confirm")
	defer span.End()
	span.SetAttributes(attribute.String("hold_id", input.HoldID))

	b, err := s.confirm(ctx, input)
	outcome := outcomeOf(err)
	metrics.BookingRequests.WithLabelValues(outcome).Inc()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		fields := []zap.Field{zap.String("hold_id", input.HoldID), zap.String("outcome", outcome), zap.Error(err)}
		if outcome == metrics.OutcomeError {
			s.logger.Error("booking confirmation failed", fields...)
		} else {
			s.logger.Info("booking confirmation rejected", fields...)
		}
		return domain.Booking{}, err
	}
	span.SetAttributes(attribute.String("booking_id", b.ID))
	return b, nil
}

func (s *BookingService) confirm(ctx context.Context, input ConfirmBookingInput) (domain.Booking, error) {
	if err := input.validate(); err != nil {
		return domain.Booking{}, err
	}

	var (
		booking     domain.Booking
		lazyExpired *domain.Hold
	)
	start := time.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		h, err := s.store.GetHoldForUpdate(ctx, input.HoldID)
		if err != nil {
			return err
		}
		switch h.Status {
		case domain.HoldStatusConfirmed, domain.HoldStatusCanceled:
			return fmt.Errorf("%w: hold is %s", domain.ErrHoldNotActive, strings.ToLower(string(h.Status)))
		case domain.HoldStatusExpired:
			return domain.ErrHoldExpired
		}

		now := s.clock.Now()
		if h.ExpiredAt(now) {
			if err := s.holds.ReleaseLocked(ctx, &h, domain.HoldStatusExpired, now); err != nil {
				return err
			}
			lazyExpired = &h
			return nil
		}

		rt, err := s.store.GetRoomType(ctx, h.RoomTypeID)
		if err != nil {
			return err
		}
		if err := s.ledger.Convert(ctx, rt, h.Nights()); err != nil {
			return err
		}

		booking = domain.Booking{
			ID:               uuid.NewString(),
			HoldID:           h.ID,
			RoomTypeID:       h.RoomTypeID,
			CheckIn:          h.CheckIn,
			CheckOut:         h.CheckOut,
			Guests:           input.Guests,
			PaymentMethod:    strings.TrimSpace(input.PaymentMethod),
			TotalAmountCents: int64(len(h.Nights())) * rt.RateCents,
			Currency:         rt.Currency,
			Status:           domain.BookingStatusConfirmed,
			CreatedAt:        now,
		}
		if err := s.store.CreateBooking(ctx, booking); err != nil {
			return err
		}
		return s.store.UpdateHoldStatus(ctx, h.ID, domain.HoldStatusConfirmed, now)
	})
	metrics.GateDuration.WithLabelValues("confirm_booking").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Booking{}, err
	}

	if lazyExpired != nil {
		metrics.HoldsReleased.WithLabelValues(metrics.ReasonLazilyExpired).Inc()
		s.publish(ctx, kafka.HoldEvent(kafka.EventHoldExpired, *lazyExpired, lazyExpired.UpdatedAt))
		return domain.Booking{}, domain.ErrHoldExpired
	}

	s.logger.Info("booking confirmed",
		zap.String("booking_id", booking.ID),
		zap.String("hold_id", booking.HoldID),
		zap.Int64("room_type_id", booking.RoomTypeID),
		zap.Int64("total_amount_cents", booking.TotalAmountCents),
	)
	s.publish(ctx, kafka.BookingEvent(booking, booking.CreatedAt))
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) publish(ctx context.Context, event kafka.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.String("hold_id", event.HoldID), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeConfirmed
	case errors.Is(err, domain.ErrHoldExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, domain.ErrHoldNotActive):
		return metrics.OutcomeRejected
	case errors.Is(err, domain.ErrLockTimeout):
		return metrics.OutcomeContended
	case errors.Is(err, domain.ErrHoldNotFound), errors.Is(err, domain.ErrGuestDetails), errors.Is(err, domain.ErrPaymentMethod):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

var _ BookingUseCase = (*BookingService)(nil)
