package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	HoldID        string         `json:"hold_id" binding:"required"`
	GuestDetails  []domain.Guest `json:"guest_details"`
	PaymentMethod string         `json:"payment_method"`
}

type bookingResponse struct {
	BookingID        string         `json:"booking_id"`
	HoldID           string         `json:"hold_id"`
	RoomTypeID       int64          `json:"room_type_id"`
	CheckInDate      string         `json:"check_in_date"`
	CheckOutDate     string         `json:"check_out_date"`
	GuestDetails     []domain.Guest `json:"guest_details"`
	PaymentMethod    string         `json:"payment_method"`
	TotalAmountCents int64          `json:"total_amount_cents"`
	Currency         string         `json:"currency"`
	Status           string         `json:"status"`
	CreatedAt        string         `json:"created_at"`
}

func newBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		BookingID:        b.ID,
		HoldID:           b.HoldID,
		RoomTypeID:       b.RoomTypeID,
		CheckInDate:      domain.FormatDate(b.CheckIn),
		CheckOutDate:     domain.FormatDate(b.CheckOut),
		GuestDetails:     b.Guests,
		PaymentMethod:    b.PaymentMethod,
		TotalAmountCents: b.TotalAmountCents,
		Currency:         b.Currency,
		Status:           strings.ToLower(string(b.Status)),
		CreatedAt:        b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router gin.IRoutes) {
	router.POST("/bookings", h.create)
	router.GET("/bookings/:id", h.get)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := h.service.ConfirmBooking(c.Request.Context(), booking.ConfirmBookingInput{
		HoldID:        req.HoldID,
		Guests:        req.GuestDetails,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(found))
}
