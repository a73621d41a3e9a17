package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Nights returns the nights of a stay, [checkIn, checkOut), in ascending order.
func Nights(checkIn, checkOut time.Time) []time.Time {
	from, to := Day(checkIn), Day(checkOut)
	if !from.Before(to) {
		return nil
	}
	nights := make([]time.Time, 0, int(to.Sub(from).Hours()/24))
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// ValidateRange checks check-in < check-out and the stay length limit (0 disables it).
func ValidateRange(checkIn, checkOut time.Time, maxNights int) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return ErrInvalidDateRange
	}
	n := len(Nights(checkIn, checkOut))
	if n == 0 {
		return ErrInvalidDateRange
	}
	if maxNights > 0 && n > maxNights {
		return ErrStayTooLong
	}
	return nil
}
