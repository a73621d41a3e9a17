// Package hold creates and cancels tentative holds on room inventory.
package hold

import (
	"context"
	"errors"
	"fmt"
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

var tracer = otel.Tracer("roomhold/hold")

type HoldUseCase interface {
	CreateHold(ctx context.Context, input CreateHoldInput) (domain.Hold, error)
	CancelHold(ctx context.Context, id string) (domain.Hold, error)
	GetHold(ctx context.Context, id string) (domain.Hold, error)
	ExpireHold(ctx context.Context, id string) (bool, error)
}

type Store interface {
	repository.Transactor
	repository.RoomTypeRepository
	repository.HoldRepository
}

type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Service struct {
	store     Store
	ledger    *inventory.Ledger
	clock     clock.Clock
	publisher EventPublisher
	logger    *zap.Logger
	holdTTL   time.Duration
	maxNights int
}

type ServiceOption func(*Service)

func WithHoldTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.holdTTL = ttl
		}
	}
}

// WithMaxNights limits the length of a stay; 0 disables the limit.
func WithMaxNights(n int) ServiceOption {
	return func(s *Service) {
		if n >= 0 {
			s.maxNights = n
		}
	}
}

func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func NewService(store Store, ledger *inventory.Ledger, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		ledger:    ledger,
		clock:     clock.NewSystem(),
		logger:    zap.NewNop(),
		holdTTL:   10 * time.Minute,
		maxNights: 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateHoldInput struct {
	RoomTypeID     int64
	CheckIn        time.Time
	CheckOut       time.Time
	Guests         int
	IdempotencyKey string
}

func (in CreateHoldInput) matches(h domain.Hold) bool {
	return h.RoomTypeID == in.RoomTypeID &&
		h.CheckIn.Equal(domain.Day(in.CheckIn)) &&
		h.CheckOut.Equal(domain.Day(in.CheckOut)) &&
		h.Guests == in.Guests
}

// CreateHold reserves one unit on every night of the stay or fails without
// side effects. A repeated idempotency key returns the hold it created.
func (s *Service) CreateHold(ctx context.Context, input CreateHoldInput) (domain.Hold, error) {
	ctx, span := tracer.Start(ctx, "hold.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("room_type_id", input.RoomTypeID))

	h, err := s.createHold(ctx, input)
	outcome := outcomeOf(err, metrics.OutcomeCreated)
	metrics.HoldRequests.WithLabelValues(outcome).Inc()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logOutcome("hold rejected", outcome, err, zap.Int64("room_type_id", input.RoomTypeID))
		return domain.Hold{}, err
	}
	span.SetAttributes(attribute.String("hold_id", h.ID))
	return h, nil
}

func (s *Service) createHold(ctx context.Context, input CreateHoldInput) (domain.Hold, error) {
	if err := domain.ValidateRange(input.CheckIn, input.CheckOut, s.maxNights); err != nil {
		return domain.Hold{}, err
	}
	if input.Guests < 1 {
		return domain.Hold{}, domain.ErrInvalidGuests
	}
	rt, err := s.store.GetRoomType(ctx, input.RoomTypeID)
	if err != nil {
		return domain.Hold{}, err
	}
	if input.Guests > rt.MaxGuests {
		return domain.Hold{}, fmt.Errorf("%w: room type %d sleeps at most %d", domain.ErrInvalidGuests, rt.ID, rt.MaxGuests)
	}

	if existing, err := s.replay(ctx, input); err != nil || existing != nil {
		if err != nil {
			return domain.Hold{}, err
		}
		return *existing, nil
	}

	now := s.clock.Now()
	hold := domain.Hold{
		ID:             uuid.NewString(),
		RoomTypeID:     rt.ID,
		CheckIn:        domain.Day(input.CheckIn),
		CheckOut:       domain.Day(input.CheckOut),
		Guests:         input.Guests,
		Status:         domain.HoldStatusActive,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.holdTTL),
		UpdatedAt:      now,
	}

	start := time.Now()
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Reserve(ctx, rt, hold.Nights()); err != nil {
			return err
		}
		return s.store.CreateHold(ctx, hold)
	})
	metrics.GateDuration.WithLabelValues("create_hold").Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		return domain.Hold{}, fmt.Errorf("%w: %w", domain.ErrInventoryContended, err)
	case errors.Is(err, domain.ErrIdempotencyConflict):
		// A concurrent request with the same key committed first.
		existing, rerr := s.replay(ctx, input)
		if rerr != nil {
			return domain.Hold{}, rerr
		}
		if existing != nil {
			return *existing, nil
		}
		return domain.Hold{}, err
	case err != nil:
		return domain.Hold{}, err
	}

	s.logger.Info("hold created",
		zap.String("hold_id", hold.ID),
		zap.Int64("room_type_id", hold.RoomTypeID),
		zap.String("check_in", domain.FormatDate(hold.CheckIn)),
		zap.String("check_out", domain.FormatDate(hold.CheckOut)),
		zap.Time("expires_at", hold.ExpiresAt),
	)
	s.publish(ctx, kafka.HoldEvent(kafka.EventHoldCreated, hold, now))
	return hold, nil
}

// replay returns the hold already created with the input's idempotency key.
func (s *Service) replay(ctx context.Context, input CreateHoldInput) (*domain.Hold, error) {
	if input.IdempotencyKey == "" {
		return nil, nil
	}
	existing, err := s.store.FindHoldByIdempotencyKey(ctx, input.RoomTypeID, input.IdempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	if !input.matches(*existing) {
		return nil, domain.ErrIdempotencyConflict
	}
	return existing, nil
}

// CancelHold releases an active hold. Terminal holds are returned unchanged;
// an active hold already past its deadline becomes Expired instead of Canceled.
func (s *Service) CancelHold(ctx context.Context, id string) (domain.Hold, error) {
	ctx, span := tracer.Start(ctx, "hold.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("hold_id", id))

	var (
		result domain.Hold
		event  string
	)
	start := time.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		h, err := s.store.GetHoldForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if h.Status.Terminal() {
			result = h
			return nil
		}

		now := s.clock.Now()
		status, reason := domain.HoldStatusCanceled, metrics.ReasonCanceled
		event = kafka.EventHoldCanceled
		if h.ExpiredAt(now) {
			status, reason = domain.HoldStatusExpired, metrics.ReasonLazilyExpired
			event = kafka.EventHoldExpired
		}
		if err := s.ReleaseLocked(ctx, &h, status, now); err != nil {
			return err
		}
		metrics.HoldsReleased.WithLabelValues(reason).Inc()
		result = h
		return nil
	})
	metrics.GateDuration.WithLabelValues("cancel_hold").Observe(time.Since(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Hold{}, err
	}

	if event != "" {
		s.logger.Info("hold released", zap.String("hold_id", result.ID), zap.String("status", string(result.Status)))
		s.publish(ctx, kafka.HoldEvent(event, result, result.UpdatedAt))
	}
	return result, nil
}

// ExpireHold releases a hold the sweeper found past its deadline. It reports
// false when the hold changed state since it was listed.
func (s *Service) ExpireHold(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "hold.expire")
	defer span.End()
	span.SetAttributes(attribute.String("hold_id", id))

	var expired domain.Hold
	released := false
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		h, err := s.store.GetHoldForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if !h.ExpiredAt(now) {
			return nil
		}
		if err := s.ReleaseLocked(ctx, &h, domain.HoldStatusExpired, now); err != nil {
			return err
		}
		expired, released = h, true
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	if released {
		metrics.HoldsReleased.WithLabelValues(metrics.ReasonExpired).Inc()
		s.publish(ctx, kafka.HoldEvent(kafka.EventHoldExpired, expired, expired.UpdatedAt))
	}
	return released, nil
}

// ReleaseLocked returns the tentative counts of an active hold and moves it to
// status. The caller's transaction must already hold the hold's row lock.
func (s *Service) ReleaseLocked(ctx context.Context, h *domain.Hold, status domain.HoldStatus, at time.Time) error {
	rt, err := s.store.GetRoomType(ctx, h.RoomTypeID)
	if err != nil {
		return err
	}
	if err := s.ledger.Release(ctx, rt, h.Nights()); err != nil {
		return err
	}
	if err := s.store.UpdateHoldStatus(ctx, h.ID, status, at); err != nil {
		return err
	}
	h.Status = status
	h.UpdatedAt = at
	return nil
}

func (s *Service) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	return s.store.GetHold(ctx, id)
}

func (s *Service) publish(ctx context.Context, event kafka.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.String("hold_id", event.HoldID), zap.Error(err))
	}
}

func (s *Service) logOutcome(msg, outcome string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("outcome", outcome), zap.Error(err))
	switch outcome {
	case metrics.OutcomeError:
		s.logger.Error(msg, fields...)
	case metrics.OutcomeInvalid:
		s.logger.Debug(msg, fields...)
	default:
		s.logger.Info(msg, fields...)
	}
}

func outcomeOf(err error, success string) string {
	switch {
	case err == nil:
		return success
	case errors.Is(err, domain.ErrNoAvailability):
		return metrics.OutcomeRejected
	case errors.Is(err, domain.ErrInventoryContended), errors.Is(err, domain.ErrLockTimeout):
		return metrics.OutcomeContended
	case errors.Is(err, domain.ErrInvalidDateRange), errors.Is(err, domain.ErrStayTooLong),
		errors.Is(err, domain.ErrInvalidGuests), errors.Is(err, domain.ErrRoomTypeNotFound),
		errors.Is(err, domain.ErrIdempotencyConflict):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

var _ HoldUseCase = (*Service)(nil)
