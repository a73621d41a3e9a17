package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func newService(t *testing.T, allotment int, opts ...ServiceOption) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(memory.WithLockWait(200 * time.Millisecond))
	svc := NewService(store, opts...)
	_, err := svc.UpsertRoomType(context.Background(), RoomTypeInput{ID: 2, Name: "Double", MaxGuests: 2, DefaultAllotment: &allotment, RateCents: 12000})
	require.NoError(t, err)
	return svc, store
}

func TestLedger_ReserveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)
	rt, err := svc.RoomType(ctx, 2)
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context) error {
		return svc.Ledger().Reserve(ctx, rt, domain.Nights(date(t, "2025-12-10"), date(t, "2025-12-12")))
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context) error {
		return svc.Ledger().Reserve(ctx, rt, domain.Nights(date(t, "2025-12-11"), date(t, "2025-12-13")))
	})
	assert.ErrorIs(t, err, domain.ErrNoAvailability)

	days, err := svc.GetAvailability(ctx, 2, date(t, "2025-12-10"), date(t, "2025-12-13"))
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, 1, days[0].TentativeCount)
	assert.Equal(t, 1, days[1].TentativeCount)
	assert.Equal(t, 0, days[2].TentativeCount)
	assert.Equal(t, 1, days[2].Available)
}

func TestLedger_ReleaseAndConvert(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 3)
	rt, err := svc.RoomType(ctx, 2)
	require.NoError(t, err)
	nights := domain.Nights(date(t, "2025-12-10"), date(t, "2025-12-12"))

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context) error {
		if err := svc.Ledger().Reserve(ctx, rt, nights); err != nil {
			return err
		}
		return svc.Ledger().Reserve(ctx, rt, nights)
	}))
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context) error {
		return svc.Ledger().Convert(ctx, rt, nights)
	}))
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context) error {
		return svc.Ledger().Release(ctx, rt, nights)
	}))

	days, err := svc.GetAvailability(ctx, 2, nights[0], nights[len(nights)-1].AddDate(0, 0, 1))
	require.NoError(t, err)
	for _, d := range days {
		assert.Equal(t, 1, d.BookedCount)
		assert.Equal(t, 0, d.TentativeCount)
		assert.Equal(t, 2, d.Available)
	}
}

func TestLedger_ReleaseWithoutTentativeIsViolation(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)
	rt, err := svc.RoomType(ctx, 2)
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context) error {
		return svc.Ledger().Release(ctx, rt, domain.Nights(date(t, "2025-12-10"), date(t, "2025-12-11")))
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestService_GetAvailability_Defaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, 4)

	days, err := svc.GetAvailability(ctx, 2, date(t, "2025-12-30"), date(t, "2026-01-02"))
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-12-30", domain.FormatDate(days[0].Date))
	assert.Equal(t, "2026-01-01", domain.FormatDate(days[2].Date))
	for _, d := range days {
		assert.Equal(t, 4, d.Allotment)
		assert.Equal(t, 4, d.Available)
	}
}

func TestService_GetAvailability_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, 1)

	_, err := svc.GetAvailability(ctx, 99, date(t, "2025-12-10"), date(t, "2025-12-11"))
	assert.ErrorIs(t, err, domain.ErrRoomTypeNotFound)

	_, err = svc.GetAvailability(ctx, 2, date(t, "2025-12-11"), date(t, "2025-12-10"))
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = svc.GetAvailability(ctx, 2, date(t, "2025-01-01"), date(t, "2026-06-01"))
	assert.ErrorIs(t, err, domain.ErrStayTooLong)
}

type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) ReadDays(ctx context.Context, roomTypeID int64, from, to time.Time) ([]domain.InventoryDay, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, domain.ErrLockTimeout
	}
	return f.Store.ReadDays(ctx, roomTypeID, from, to)
}

func TestService_GetAvailability_RetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.NewStore(), failures: 2}
	svc := NewService(store, WithReadRetry(3, time.Millisecond))
	_, err := svc.UpsertRoomType(ctx, RoomTypeInput{ID: 1, Name: "Single", MaxGuests: 1})
	require.NoError(t, err)

	days, err := svc.GetAvailability(ctx, 1, date(t, "2025-12-10"), date(t, "2025-12-11"))
	require.NoError(t, err)
	assert.Len(t, days, 1)
	assert.Equal(t, 10, days[0].Allotment)
	assert.Equal(t, 3, store.calls)
}

func TestService_GetAvailability_GivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.NewStore(), failures: 10}
	svc := NewService(store, WithReadRetry(2, time.Millisecond))
	_, err := svc.UpsertRoomType(ctx, RoomTypeInput{ID: 1, Name: "Single", MaxGuests: 1})
	require.NoError(t, err)

	_, err = svc.GetAvailability(ctx, 1, date(t, "2025-12-10"), date(t, "2025-12-11"))
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Equal(t, 3, store.calls)
}

func TestService_SetAllotment(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 2)
	rt, err := svc.RoomType(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context) error {
		return svc.Ledger().Reserve(ctx, rt, domain.Nights(date(t, "2025-12-11"), date(t, "2025-12-12")))
	}))

	days, err := svc.SetAllotment(ctx, 2, date(t, "2025-12-10"), date(t, "2025-12-13"), 5)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, 4, days[1].Available)

	_, err = svc.SetAllotment(ctx, 2, date(t, "2025-12-10"), date(t, "2025-12-13"), 0)
	assert.ErrorIs(t, err, domain.ErrAllotmentBelowUsage)

	after, err := svc.GetAvailability(ctx, 2, date(t, "2025-12-10"), date(t, "2025-12-13"))
	require.NoError(t, err)
	for _, d := range after {
		assert.Equal(t, 5, d.Allotment, "rejected update must not change any night")
	}

	_, err = svc.SetAllotment(ctx, 2, date(t, "2025-12-10"), date(t, "2025-12-13"), -1)
	assert.ErrorIs(t, err, domain.ErrInvalidAllotment)
}

func TestService_UpsertRoomType_Validation(t *testing.T) {
	svc := NewService(memory.NewStore(), WithDefaultAllotment(7))
	ctx := context.Background()

	tests := []struct {
		name  string
		input RoomTypeInput
	}{
		{"missing id", RoomTypeInput{Name: "A", MaxGuests: 1}},
		{"missing name", RoomTypeInput{ID: 1, MaxGuests: 1}},
		{"no guests", RoomTypeInput{ID: 1, Name: "A"}},
		{"negative rate", RoomTypeInput{ID: 1, Name: "A", MaxGuests: 1, RateCents: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertRoomType(ctx, tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidRoomType)
		})
	}

	rt, err := svc.UpsertRoomType(ctx, RoomTypeInput{ID: 1, Name: " Suite ", MaxGuests: 4, Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, "Suite", rt.Name)
	assert.Equal(t, "EUR", rt.Currency)
	assert.Equal(t, 7, rt.DefaultAllotment)
}

type fakeCache struct {
	roomTypes   []domain.RoomType
	sets        int
	invalidated int
}

func (c *fakeCache) GetRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	return c.roomTypes, nil
}

func (c *fakeCache) SetRoomTypes(ctx context.Context, roomTypes []domain.RoomType) error {
	c.sets++
	c.roomTypes = roomTypes
	return nil
}

func (c *fakeCache) InvalidateRoomTypes(ctx context.Context) error {
	c.invalidated++
	c.roomTypes = nil
	return nil
}

func TestService_ListRoomTypes_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := &fakeCache{}
	svc := NewService(memory.NewStore(), WithCache(cache))

	_, err := svc.UpsertRoomType(ctx, RoomTypeInput{ID: 1, Name: "Single", MaxGuests: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	first, err := svc.ListRoomTypes(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.ListRoomTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets, "second read is served from the cache")
}
