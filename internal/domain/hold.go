package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "ACTIVE"
	HoldStatusConfirmed HoldStatus = "CONFIRMED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
	HoldStatusCanceled  HoldStatus = "CANCELED"
)

// Terminal reports whether no further transition is allowed.
func (s HoldStatus) Terminal() bool {
	return s != HoldStatusActive
}

// Hold reserves one room unit of tentative count on every night of [CheckIn, CheckOut).
type Hold struct {
	ID             string
	RoomTypeID     int64
	CheckIn        time.Time
	CheckOut       time.Time
	Guests         int
	Status         HoldStatus
	IdempotencyKey string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

func (h Hold) Nights() []time.Time {
	return Nights(h.CheckIn, h.CheckOut)
}

// ExpiredAt reports whether an active hold is past its deadline at now.
func (h Hold) ExpiredAt(now time.Time) bool {
	return h.Status == HoldStatusActive && !now.Before(h.ExpiresAt)
}
