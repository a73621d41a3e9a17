package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{domain.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{domain.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{domain.ErrStayTooLong, http.StatusBadRequest, "stay_too_long"},
	{domain.ErrInvalidGuests, http.StatusBadRequest, "invalid_guests"},
	{domain.ErrGuestDetails, http.StatusBadRequest, "invalid_guest_details"},
	{domain.ErrPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{domain.ErrInvalidAllotment, http.StatusBadRequest, "invalid_allotment"},
	{domain.ErrInvalidRoomType, http.StatusBadRequest, "invalid_room_type"},
	{domain.ErrRoomTypeNotFound, http.StatusNotFound, "room_type_not_found"},
	{domain.ErrHoldNotFound, http.StatusNotFound, "hold_not_found"},
	{domain.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{domain.ErrNoAvailability, http.StatusConflict, "no_availability"},
	{domain.ErrInventoryContended, http.StatusConflict, "inventory_contended"},
	{domain.ErrHoldNotActive, http.StatusConflict, "hold_not_active"},
	{domain.ErrIdempotencyConflict, http.StatusConflict, "idempotency_conflict"},
	{domain.ErrAllotmentBelowUsage, http.StatusConflict, "allotment_below_usage"},
	{domain.ErrHoldExpired, http.StatusGone, "hold_expired"},
	{domain.ErrLockTimeout, http.StatusServiceUnavailable, "lock_timeout"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
	{domain.ErrInvariantViolation, http.StatusInternalServerError, "invariant_violation"},
}

func statusOf(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && code == "internal_error" {
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}
