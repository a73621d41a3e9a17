package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
)

type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Booking is created only by confirming an active hold and is never deleted.
type Booking struct {
	ID               string
	HoldID           string
	RoomTypeID       int64
	CheckIn          time.Time
	CheckOut         time.Time
	Guests           []Guest
	PaymentMethod    string
	TotalAmountCents int64
	Currency         string
	Status           BookingStatus
	CreatedAt        time.Time
}

func (b Booking) Nights() []time.Time {
	return Nights(b.CheckIn, b.CheckOut)
}
