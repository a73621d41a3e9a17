package domain

import "errors"

var (
	ErrRoomTypeNotFound    = errors.New("room type not found")
	ErrHoldNotFound        = errors.New("hold not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidDateRange    = errors.New("check-in must be before check-out")
	ErrStayTooLong         = errors.New("stay exceeds maximum number of nights")
	ErrInvalidGuests       = errors.New("invalid guest count")
	ErrGuestDetails        = errors.New("guest details require a name and email")
	ErrPaymentMethod       = errors.New("payment method is required")
	ErrInvalidAllotment    = errors.New("allotment must not be negative")
	ErrInvalidRoomType     = errors.New("invalid room type")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")

	// Expected rejections.
	ErrNoAvailability      = errors.New("no availability")
	ErrInventoryContended  = errors.New("inventory is busy, try again")
	ErrHoldNotActive       = errors.New("hold is no longer active")
	ErrHoldExpired         = errors.New("hold expired")
	ErrAllotmentBelowUsage = errors.New("allotment below booked and held rooms")

	// Faults.
	ErrInvariantViolation = errors.New("inventory invariant violated")
	ErrLockTimeout        = errors.New("timed out waiting for inventory lock")
	ErrStoreUnavailable   = errors.New("storage unavailable")
)
