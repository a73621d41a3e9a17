package domain

import "time"

type RoomType struct {
	ID               int64
	Name             string
	MaxGuests        int
	DefaultAllotment int
	RateCents        int64
	Currency         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InventoryDay holds the counters of one room type on one night.
type InventoryDay struct {
	RoomTypeID     int64
	Date           time.Time
	Allotment      int
	BookedCount    int
	TentativeCount int
}

func (d InventoryDay) Available() int {
	return d.Allotment - d.BookedCount - d.TentativeCount
}

// Violated reports booked + tentative exceeding allotment.
func (d InventoryDay) Violated() bool {
	return d.BookedCount < 0 || d.TentativeCount < 0 || d.BookedCount+d.TentativeCount > d.Allotment
}

// DayAvailability is the read model returned to clients.
type DayAvailability struct {
	Date           time.Time
	Allotment      int
	BookedCount    int
	TentativeCount int
	Available      int
}

func (d InventoryDay) Availability() DayAvailability {
	return DayAvailability{
		Date:           d.Date,
		Allotment:      d.Allotment,
		BookedCount:    d.BookedCount,
		TentativeCount: d.TentativeCount,
		Available:      d.Available(),
	}
}
