package hold

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/service/inventory"
	"github.com/Domenick1991/roomhold/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPGService(t *testing.T, allotment int) (*Service, *inventory.Service, int64) {
	t.Helper()
	store := testutil.NewTestStore(t, 10, 3*time.Second)
	inv := inventory.NewService(store)
	rt, err := inv.UpsertRoomType(context.Background(), inventory.RoomTypeInput{
		ID: testutil.RoomTypeID(), Name: "Double", MaxGuests: 2, DefaultAllotment: &allotment,
	})
	require.NoError(t, err)
	return NewService(store, inv.Ledger(), WithHoldTTL(10*time.Minute)), inv, rt.ID
}

func tentativeCounts(t *testing.T, inv *inventory.Service, roomTypeID int64, from, to time.Time) []int {
	t.Helper()
	days, err := inv.GetAvailability(context.Background(), roomTypeID, from, to)
	require.NoError(t, err)
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = d.TentativeCount
	}
	return out
}

func TestHoldService_AllOrNothing_Postgres(t *testing.T) {
	holds, inv, roomTypeID := newPGService(t, 1)
	ctx := context.Background()

	_, err := holds.CreateHold(ctx, CreateHoldInput{RoomTypeID: roomTypeID, CheckIn: checkIn.AddDate(0, 0, 1), CheckOut: checkOut, Guests: 1})
	require.NoError(t, err)

	_, err = holds.CreateHold(ctx, CreateHoldInput{RoomTypeID: roomTypeID, CheckIn: checkIn, CheckOut: checkOut, Guests: 1})
	assert.ErrorIs(t, err, domain.ErrNoAvailability)
	assert.Equal(t, []int{0, 1}, tentativeCounts(t, inv, roomTypeID, checkIn, checkOut))
}

func TestHoldService_ConcurrentIdempotentRequests_Postgres(t *testing.T) {
	holds, inv, roomTypeID := newPGService(t, 5)
	input := CreateHoldInput{RoomTypeID: roomTypeID, CheckIn: checkIn, CheckOut: checkOut, Guests: 1, IdempotencyKey: "retry"}

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := holds.CreateHold(context.Background(), input)
			ids[i], errs[i] = h.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, []int{1, 1}, tentativeCounts(t, inv, roomTypeID, checkIn, checkOut))
}
