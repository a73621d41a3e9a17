// Package memory is an in-process storage backend. Inventory rows are an arena
// keyed by (room type, date); every row and every hold has its own lock, taken
// for the life of a transaction with a bounded wait. Writes are staged on the
// transaction and applied under the store mutex at commit, so readers never see
// part of a transaction.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/repository"
)

const defaultLockWait = 3 * time.Second

var errNoTx = errors.New("row locks can only be taken inside a transaction")

type dayKey struct {
	roomTypeID int64
	day        int64
}

func keyOf(roomTypeID int64, date time.Time) dayKey {
	return dayKey{roomTypeID: roomTypeID, day: domain.Day(date).Unix() / 86400}
}

type dayRow struct {
	lock rowLock
	// exists is false for placeholder rows created only to be locked by a reader.
	exists bool
	day    domain.InventoryDay
}

type holdRow struct {
	lock rowLock
	hold domain.Hold
}

type idempotencyKey struct {
	roomTypeID int64
	key        string
}

type Store struct {
	mu            sync.RWMutex
	roomTypes     map[int64]domain.RoomType
	days          map[dayKey]*dayRow
	holds         map[string]*holdRow
	idempotency   map[idempotencyKey]string
	bookings      map[string]domain.Booking
	bookingByHold map[string]string

	lockWait time.Duration
	now      func() time.Time
}

type Option func(*Store)

// WithLockWait bounds how long a transaction waits for all of its row locks.
func WithLockWait(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		roomTypes:     make(map[int64]domain.RoomType),
		days:          make(map[dayKey]*dayRow),
		holds:         make(map[string]*holdRow),
		idempotency:   make(map[idempotencyKey]string),
		bookings:      make(map[string]domain.Booking),
		bookingByHold: make(map[string]string),
		lockWait:      defaultLockWait,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	t := newTx(s)
	defer t.release()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	return t.commit()
}

// inTx runs fn against the caller's transaction, or a fresh one.
func (s *Store) inTx(ctx context.Context, fn func(t *tx) error) error {
	if t := txFromContext(ctx); t != nil {
		return fn(t)
	}
	return s.WithTx(ctx, func(ctx context.Context) error {
		return fn(txFromContext(ctx))
	})
}

func (s *Store) GetRoomType(ctx context.Context, id int64) (domain.RoomType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.roomTypes[id]
	if !ok {
		return domain.RoomType{}, domain.ErrRoomTypeNotFound
	}
	return rt, nil
}

func (s *Store) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomType, 0, len(s.roomTypes))
	for _, rt := range s.roomTypes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertRoomType(ctx context.Context, rt *domain.RoomType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.roomTypes[rt.ID]; ok {
		rt.CreatedAt = existing.CreatedAt
	} else {
		rt.CreatedAt = now
	}
	rt.UpdatedAt = now
	s.roomTypes[rt.ID] = *rt
	return nil
}

func (s *Store) LockDays(ctx context.Context, roomTypeID int64, nights []time.Time, allotment int) ([]domain.InventoryDay, error) {
	t := txFromContext(ctx)
	if t == nil {
		return nil, errNoTx
	}

	keys := sortedKeys(roomTypeID, nights)
	days := make([]domain.InventoryDay, 0, len(keys))
	for _, k := range keys {
		if staged, ok := t.days[k]; ok {
			days = append(days, staged)
			continue
		}
		row := s.dayRow(k)
		if err := t.lock(ctx, row.lock); err != nil {
			return nil, err
		}

		s.mu.RLock()
		d := row.day
		exists := row.exists
		s.mu.RUnlock()
		if !exists {
			d = domain.InventoryDay{RoomTypeID: roomTypeID, Date: time.Unix(k.day*86400, 0).UTC(), Allotment: allotment}
		}
		t.days[k] = d
		days = append(days, d)
	}
	return days, nil
}

func (s *Store) SaveDays(ctx context.Context, days []domain.InventoryDay) error {
	t := txFromContext(ctx)
	if t == nil {
		return errNoTx
	}
	for _, d := range days {
		k := keyOf(d.RoomTypeID, d.Date)
		if _, ok := t.days[k]; !ok {
			return errors.New("save inventory row: row not locked by this transaction")
		}
		t.days[k] = d
	}
	return nil
}

// ReadDays returns the committed rows of the range. Commits apply all their
// rows under the store mutex, so reading under it sees a multi-night commit
// entirely or not at all. Dates nobody has locked get no row.
func (s *Store) ReadDays(ctx context.Context, roomTypeID int64, from, to time.Time) ([]domain.InventoryDay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nights := domain.Nights(from, to)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InventoryDay, 0, len(nights))
	for _, k := range sortedKeys(roomTypeID, nights) {
		if row, ok := s.days[k]; ok && row.exists {
			out = append(out, row.day)
		}
	}
	return out, nil
}

func (s *Store) CreateHold(ctx context.Context, hold domain.Hold) error {
	return s.inTx(ctx, func(t *tx) error {
		if _, ok := t.holds[hold.ID]; ok {
			return errors.New("create hold: duplicate id")
		}
		t.holds[hold.ID] = hold
		t.newHolds = append(t.newHolds, hold.ID)
		return nil
	})
}

func (s *Store) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	if t := txFromContext(ctx); t != nil {
		if h, ok := t.holds[id]; ok {
			return h, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.holds[id]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return row.hold, nil
}

func (s *Store) GetHoldForUpdate(ctx context.Context, id string) (domain.Hold, error) {
	t := txFromContext(ctx)
	if t == nil {
		return domain.Hold{}, errNoTx
	}
	if h, ok := t.holds[id]; ok {
		return h, nil
	}

	s.mu.RLock()
	row, ok := s.holds[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	if err := t.lock(ctx, row.lock); err != nil {
		return domain.Hold{}, err
	}

	s.mu.RLock()
	h := row.hold
	s.mu.RUnlock()
	t.holds[id] = h
	return h, nil
}

func (s *Store) FindHoldByIdempotencyKey(ctx context.Context, roomTypeID int64, key string) (*domain.Hold, error) {
	if key == "" {
		return nil, nil
	}
	if t := txFromContext(ctx); t != nil {
		for _, id := range t.newHolds {
			if h := t.holds[id]; h.RoomTypeID == roomTypeID && h.IdempotencyKey == key {
				return &h, nil
			}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idempotency[idempotencyKey{roomTypeID: roomTypeID, key: key}]
	if !ok {
		return nil, nil
	}
	h := s.holds[id].hold
	return &h, nil
}

func (s *Store) UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, at time.Time) error {
	return s.inTx(ctx, func(t *tx) error {
		h, err := s.GetHoldForUpdate(t.context(ctx), id)
		if err != nil {
			return err
		}
		h.Status = status
		h.UpdatedAt = at
		t.holds[id] = h
		return nil
	})
}

func (s *Store) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	expired := make([]domain.Hold, 0)
	for _, row := range s.holds {
		if row.hold.ExpiredAt(now) {
			expired = append(expired, row.hold)
		}
	}
	s.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]string, len(expired))
	for i, h := range expired {
		ids[i] = h.ID
	}
	return ids, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking domain.Booking) error {
	return s.inTx(ctx, func(t *tx) error {
		t.bookings = append(t.bookings, booking)
		return nil
	})
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

// dayRow returns the row for k, creating a placeholder when missing. Only
// LockDays creates placeholders, so they are bounded by the dates writers touch.
func (s *Store) dayRow(k dayKey) *dayRow {
	s.mu.RLock()
	row, ok := s.days[k]
	s.mu.RUnlock()
	if ok {
		return row
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok = s.days[k]; !ok {
		row = &dayRow{lock: newRowLock()}
		s.days[k] = row
	}
	return row
}

func sortedKeys(roomTypeID int64, nights []time.Time) []dayKey {
	seen := make(map[dayKey]struct{}, len(nights))
	keys := make([]dayKey, 0, len(nights))
	for _, n := range nights {
		k := keyOf(roomTypeID, n)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].day < keys[j].day })
	return keys
}

var _ repository.Store = (*Store)(nil)
