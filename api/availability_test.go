package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/service/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) GetAvailability(ctx context.Context, roomTypeID int64, start, end time.Time) ([]domain.DayAvailability, error) {
	args := m.Called(ctx, roomTypeID, start, end)
	days, _ := args.Get(0).([]domain.DayAvailability)
	return days, args.Error(1)
}

func (m *MockAvailability) Search(ctx context.Context, start, end time.Time, guests int) ([]availability.RoomTypeAvailability, error) {
	args := m.Called(ctx, start, end, guests)
	results, _ := args.Get(0).([]availability.RoomTypeAvailability)
	return results, args.Error(1)
}

func (m *MockAvailability) VerifyIntegrity(ctx context.Context, roomTypeID int64, start, end time.Time) (availability.IntegrityReport, error) {
	args := m.Called(ctx, roomTypeID, start, end)
	return args.Get(0).(availability.IntegrityReport), args.Error(1)
}

var (
	availStart = time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	availEnd   = time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC)
)

func TestAvailabilityHandler_get(t *testing.T) {
	m := &MockAvailability{}
	days := []domain.DayAvailability{
		{Date: availStart, Allotment: 1, TentativeCount: 1, Available: 0},
		{Date: availStart.AddDate(0, 0, 1), Allotment: 1, Available: 1},
	}
	m.On("GetAvailability", mock.Anything, int64(2), availStart, availEnd).Return(days, nil)
	router := newTestRouter(NewAvailabilityHandler(m, m))

	w := doJSON(t, router, http.MethodGet, "/availability?room_type_id=2&start_date=2025-12-10&end_date=2025-12-12", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp availabilityResponse
	decode(t, w, &resp)
	assert.Equal(t, int64(2), resp.RoomTypeID)
	require.Len(t, resp.Days, 2)
	assert.Equal(t, dayResponse{Date: "2025-12-10", Allotment: 1, TentativeCount: 1, Available: 0}, resp.Days[0])
	assert.Nil(t, resp.MinAvailable)
}

func TestAvailabilityHandler_get_BadRequests(t *testing.T) {
	m := &MockAvailability{}
	m.On("GetAvailability", mock.Anything, int64(9), mock.Anything, mock.Anything).Return(nil, domain.ErrRoomTypeNotFound)
	router := newTestRouter(NewAvailabilityHandler(m, m))

	tests := []struct {
		target string
		status int
	}{
		{"/availability?room_type_id=2", http.StatusBadRequest},
		{"/availability?room_type_id=abc&start_date=2025-12-10&end_date=2025-12-12", http.StatusBadRequest},
		{"/availability?room_type_id=2&start_date=2025-13-10&end_date=2025-12-12", http.StatusBadRequest},
		{"/availability?room_type_id=9&start_date=2025-12-10&end_date=2025-12-12", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := doJSON(t, router, http.MethodGet, tt.target, nil)
		assert.Equal(t, tt.status, w.Code, tt.target)
	}
}

func TestAvailabilityHandler_search(t *testing.T) {
	m := &MockAvailability{}
	m.On("Search", mock.Anything, availStart, availEnd, 2).Return([]availability.RoomTypeAvailability{
		{
			RoomType:     domain.RoomType{ID: 2, Name: "Double", MaxGuests: 2},
			Days:         []domain.DayAvailability{{Date: availStart, Allotment: 3, Available: 3}},
			MinAvailable: 3,
		},
	}, nil)
	router := newTestRouter(NewAvailabilityHandler(m, m))

	w := doJSON(t, router, http.MethodGet, "/availability?start_date=2025-12-10&end_date=2025-12-12&guests=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp searchResponse
	decode(t, w, &resp)
	require.Len(t, resp.RoomTypes, 1)
	assert.Equal(t, "Double", resp.RoomTypes[0].Name)
	require.NotNil(t, resp.RoomTypes[0].MinAvailable)
	assert.Equal(t, 3, *resp.RoomTypes[0].MinAvailable)
}

func TestAvailabilityHandler_integrity(t *testing.T) {
	m := &MockAvailability{}
	handler := NewAvailabilityHandler(m, m)
	handler.now = func() time.Time { return time.Date(2025, 12, 1, 15, 30, 0, 0, time.UTC) }
	today := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	m.On("VerifyIntegrity", mock.Anything, int64(0), today, today.AddDate(0, 0, 365)).Return(availability.IntegrityReport{
		Start: today, End: today.AddDate(0, 0, 365), RoomTypes: 2, DaysRead: 10, Violations: []domain.InventoryDay{},
	}, nil)
	m.On("VerifyIntegrity", mock.Anything, int64(2), availStart, availEnd).Return(availability.IntegrityReport{
		Start: availStart, End: availEnd, RoomTypes: 1, DaysRead: 2,
		Violations: []domain.InventoryDay{{RoomTypeID: 2, Date: availStart, Allotment: 1, BookedCount: 1, TentativeCount: 1}},
	}, nil)
	router := newTestRouter(handler)

	w := doJSON(t, router, http.MethodGet, "/integrity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var clean integrityResponse
	decode(t, w, &clean)
	assert.True(t, clean.OK)
	assert.Empty(t, clean.Violations)

	w = doJSON(t, router, http.MethodGet, "/integrity?room_type_id=2&start_date=2025-12-10&end_date=2025-12-12", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dirty integrityResponse
	decode(t, w, &dirty)
	assert.False(t, dirty.OK)
	require.Len(t, dirty.Violations, 1)
	assert.Equal(t, "2025-12-10", dirty.Violations[0].Date)
}
