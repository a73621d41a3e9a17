package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/repository"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// MaxRangeDays bounds availability reads and allotment updates.
const MaxRangeDays = 366

// RoomTypeCache stores the room type catalog. A miss returns nil, nil.
type RoomTypeCache interface {
	GetRoomTypes(ctx context.Context) ([]domain.RoomType, error)
	SetRoomTypes(ctx context.Context, roomTypes []domain.RoomType) error
	InvalidateRoomTypes(ctx context.Context) error
}

type Store interface {
	repository.Transactor
	repository.RoomTypeRepository
	repository.InventoryRepository
}

type Service struct {
	store            Store
	ledger           *Ledger
	cache            RoomTypeCache
	logger           *zap.Logger
	defaultAllotment int
	readRetries      int
	readBackoff      time.Duration
}

type ServiceOption func(*Service)

func WithCache(cache RoomTypeCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultAllotment sets the allotment of room types created without one.
func WithDefaultAllotment(n int) ServiceOption {
	return func(s *Service) {
		if n >= 0 {
			s.defaultAllotment = n
		}
	}
}

// WithReadRetry bounds the retries of availability reads on transient errors.
func WithReadRetry(retries int, initial time.Duration) ServiceOption {
	return func(s *Service) {
		if retries >= 0 {
			s.readRetries = retries
		}
		if initial > 0 {
			s.readBackoff = initial
		}
	}
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:            store,
		logger:           zap.NewNop(),
		defaultAllotment: 10,
		readRetries:      3,
		readBackoff:      50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = NewLedger(store, s.logger)
	return s
}

func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// RoomType reads from the store so capacity decisions never use a stale catalog.
func (s *Service) RoomType(ctx context.Context, id int64) (domain.RoomType, error) {
	return s.store.GetRoomType(ctx, id)
}

func (s *Service) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRoomTypes(ctx)
		if err != nil {
			s.logger.Warn("room type cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	roomTypes, err := s.store.ListRoomTypes(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRoomTypes(ctx, roomTypes); err != nil {
			s.logger.Warn("room type cache write failed", zap.Error(err))
		}
	}
	return roomTypes, nil
}

type RoomTypeInput struct {
	ID        int64
	Name      string
	MaxGuests int
	// DefaultAllotment falls back to the configured default when nil.
	DefaultAllotment *int
	RateCents        int64
	Currency         string
}

func (s *Service) UpsertRoomType(ctx context.Context, input RoomTypeInput) (domain.RoomType, error) {
	rt := domain.RoomType{
		ID:               input.ID,
		Name:             strings.TrimSpace(input.Name),
		MaxGuests:        input.MaxGuests,
		DefaultAllotment: s.defaultAllotment,
		RateCents:        input.RateCents,
		Currency:         strings.ToUpper(strings.TrimSpace(input.Currency)),
	}
	if input.DefaultAllotment != nil {
		rt.DefaultAllotment = *input.DefaultAllotment
	}
	if rt.Currency == "" {
		rt.Currency = "USD"
	}

	switch {
	case rt.ID <= 0:
		return domain.RoomType{}, fmt.Errorf("%w: id must be positive", domain.ErrInvalidRoomType)
	case rt.Name == "":
		return domain.RoomType{}, fmt.Errorf("%w: name is required", domain.ErrInvalidRoomType)
	case rt.MaxGuests < 1:
		return domain.RoomType{}, fmt.Errorf("%w: max_guests must be at least 1", domain.ErrInvalidRoomType)
	case rt.RateCents < 0:
		return domain.RoomType{}, fmt.Errorf("%w: rate must not be negative", domain.ErrInvalidRoomType)
	case rt.DefaultAllotment < 0:
		return domain.RoomType{}, domain.ErrInvalidAllotment
	}

	if err := s.store.UpsertRoomType(ctx, &rt); err != nil {
		return domain.RoomType{}, err
	}
	s.invalidate(ctx)
	s.logger.Info("room type saved", zap.Int64("room_type_id", rt.ID), zap.Int("default_allotment", rt.DefaultAllotment))
	return rt, nil
}

// SetAllotment changes the allotment of every night in [start, end). It fails
// without changing anything if any night already uses more than allotment.
func (s *Service) SetAllotment(ctx context.Context, roomTypeID int64, start, end time.Time, allotment int) ([]domain.DayAvailability, error) {
	if allotment < 0 {
		return nil, domain.ErrInvalidAllotment
	}
	if err := domain.ValidateRange(start, end, MaxRangeDays); err != nil {
		return nil, err
	}
	rt, err := s.store.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}

	var out []domain.DayAvailability
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		days, err := s.store.LockDays(ctx, rt.ID, domain.Nights(start, end), rt.DefaultAllotment)
		if err != nil {
			return err
		}
		for i, d := range days {
			if used := d.BookedCount + d.TentativeCount; used > allotment {
				return fmt.Errorf("%w: %d in use on %s", domain.ErrAllotmentBelowUsage, used, domain.FormatDate(d.Date))
			}
			days[i].Allotment = allotment
		}
		if err := s.store.SaveDays(ctx, days); err != nil {
			return err
		}
		out = make([]domain.DayAvailability, len(days))
		for i, d := range days {
			out[i] = d.Availability()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("allotment updated",
		zap.Int64("room_type_id", rt.ID),
		zap.String("start", domain.FormatDate(start)),
		zap.String("end", domain.FormatDate(end)),
		zap.Int("allotment", allotment),
	)
	return out, nil
}

// GetAvailability returns one entry per night of [start, end) from a single
// consistent snapshot. Nights never referenced report the default allotment.
func (s *Service) GetAvailability(ctx context.Context, roomTypeID int64, start, end time.Time) ([]domain.DayAvailability, error) {
	if err := domain.ValidateRange(start, end, MaxRangeDays); err != nil {
		return nil, err
	}
	rt, err := s.store.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}

	var rows []domain.InventoryDay
	read := func() error {
		var err error
		rows, err = s.store.ReadDays(ctx, rt.ID, start, end)
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Debug("retrying availability read", zap.Int64("room_type_id", rt.ID), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(read, s.retryPolicy(ctx), notify); err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]domain.InventoryDay, len(rows))
	for _, d := range rows {
		byDate[domain.Day(d.Date)] = d
	}
	nights := domain.Nights(start, end)
	out := make([]domain.DayAvailability, len(nights))
	for i, night := range nights {
		d, ok := byDate[night]
		if !ok {
			d = domain.InventoryDay{RoomTypeID: rt.ID, Date: night, Allotment: rt.DefaultAllotment}
		}
		out[i] = d.Availability()
	}
	return out, nil
}

func (s *Service) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.readBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.readRetries)), ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRoomTypes(ctx); err != nil {
		s.logger.Warn("room type cache invalidation failed", zap.Error(err))
	}
}

func transient(err error) bool {
	return errors.Is(err, domain.ErrLockTimeout) || errors.Is(err, domain.ErrStoreUnavailable)
}
