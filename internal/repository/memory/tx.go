package memory

import (
	"context"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
)

type txKey struct{}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// rowLock is a mutex that supports waiting with a deadline.
type rowLock chan struct{}

func newRowLock() rowLock {
	return make(rowLock, 1)
}

func (l rowLock) acquire(ctx context.Context, deadline time.Time) error {
	select {
	case l <- struct{}{}:
		return nil
	default:
	}

	wait := time.Until(deadline)
	if wait <= 0 {
		return domain.ErrLockTimeout
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l rowLock) release() {
	<-l
}

type tx struct {
	store    *Store
	deadline time.Time
	locks    []rowLock

	days     map[dayKey]domain.InventoryDay
	holds    map[string]domain.Hold
	newHolds []string
	bookings []domain.Booking
	done     bool
}

func newTx(s *Store) *tx {
	return &tx{
		store:    s,
		deadline: time.Now().Add(s.lockWait),
		days:     make(map[dayKey]domain.InventoryDay),
		holds:    make(map[string]domain.Hold),
	}
}

func (t *tx) context(parent context.Context) context.Context {
	if txFromContext(parent) == t {
		return parent
	}
	return context.WithValue(parent, txKey{}, t)
}

func (t *tx) lock(ctx context.Context, l rowLock) error {
	if err := l.acquire(ctx, t.deadline); err != nil {
		return err
	}
	t.locks = append(t.locks, l)
	return nil
}

// release drops all locks in reverse acquisition order. Safe to call twice.
func (t *tx) release() {
	if t.done {
		return
	}
	t.done = true
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].release()
	}
	t.locks = nil
}

// commit validates unique constraints and applies every staged write at once.
func (t *tx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range t.newHolds {
		h := t.holds[id]
		if _, exists := s.holds[id]; exists {
			return domain.ErrIdempotencyConflict
		}
		if h.IdempotencyKey == "" {
			continue
		}
		if _, taken := s.idempotency[idempotencyKey{roomTypeID: h.RoomTypeID, key: h.IdempotencyKey}]; taken {
			return domain.ErrIdempotencyConflict
		}
	}
	for _, b := range t.bookings {
		if _, booked := s.bookingByHold[b.HoldID]; booked {
			return domain.ErrHoldNotActive
		}
	}
	for _, d := range t.days {
		if d.Violated() {
			return domain.ErrInvariantViolation
		}
	}

	for k, d := range t.days {
		row := s.days[k]
		row.day = d
		row.exists = true
	}

	isNew := make(map[string]bool, len(t.newHolds))
	for _, id := range t.newHolds {
		isNew[id] = true
	}
	for id, h := range t.holds {
		if isNew[id] {
			s.holds[id] = &holdRow{lock: newRowLock(), hold: h}
			if h.IdempotencyKey != "" {
				s.idempotency[idempotencyKey{roomTypeID: h.RoomTypeID, key: h.IdempotencyKey}] = id
			}
			continue
		}
		s.holds[id].hold = h
	}
	for _, b := range t.bookings {
		s.bookings[b.ID] = b
		s.bookingByHold[b.HoldID] = b.ID
	}
	return nil
}
