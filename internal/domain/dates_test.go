package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNights(t *testing.T) {
	in := time.Date(2025, 12, 10, 15, 0, 0, 0, time.UTC)
	out := time.Date(2025, 12, 12, 11, 0, 0, 0, time.UTC)

	nights := Nights(in, out)
	require.Len(t, nights, 2)
	assert.Equal(t, "2025-12-10", FormatDate(nights[0]))
	assert.Equal(t, "2025-12-11", FormatDate(nights[1]))

	assert.Empty(t, Nights(out, in))
	assert.Empty(t, Nights(in, in))
}

func TestNights_AcrossMonthEnd(t *testing.T) {
	in, _ := ParseDate("2026-02-27")
	out, _ := ParseDate("2026-03-02")

	nights := Nights(in, out)
	require.Len(t, nights, 3)
	assert.Equal(t, "2026-03-01", FormatDate(nights[2]))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-12-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/12/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestValidateRange(t *testing.T) {
	in, _ := ParseDate("2025-12-10")

	testCases := []struct {
		name      string
		checkOut  time.Time
		maxNights int
		wantErr   error
	}{
		{name: "two nights", checkOut: in.AddDate(0, 0, 2), maxNights: 30},
		{name: "same day", checkOut: in, maxNights: 30, wantErr: ErrInvalidDateRange},
		{name: "reversed", checkOut: in.AddDate(0, 0, -1), maxNights: 30, wantErr: ErrInvalidDateRange},
		{name: "too long", checkOut: in.AddDate(0, 0, 31), maxNights: 30, wantErr: ErrStayTooLong},
		{name: "no limit", checkOut: in.AddDate(0, 0, 365), maxNights: 0},
		{name: "zero check-out", checkOut: time.Time{}, maxNights: 30, wantErr: ErrInvalidDateRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRange(in, tc.checkOut, tc.maxNights)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestInventoryDay_Violated(t *testing.T) {
	assert.False(t, InventoryDay{Allotment: 1, BookedCount: 1}.Violated())
	assert.True(t, InventoryDay{Allotment: 1, BookedCount: 1, TentativeCount: 1}.Violated())
	assert.True(t, InventoryDay{Allotment: 3, TentativeCount: -1}.Violated())
	assert.Equal(t, 2, InventoryDay{Allotment: 5, BookedCount: 2, TentativeCount: 1}.Available())
}

func TestHold_ExpiredAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	h := Hold{Status: HoldStatusActive, ExpiresAt: now}

	assert.True(t, h.ExpiredAt(now))
	assert.False(t, h.ExpiredAt(now.Add(-time.Second)))

	h.Status = HoldStatusConfirmed
	assert.False(t, h.ExpiredAt(now.Add(time.Hour)))
}
