package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/service/inventory"
	"github.com/gin-gonic/gin"
)

type RoomTypeService interface {
	ListRoomTypes(ctx context.Context) ([]domain.RoomType, error)
	UpsertRoomType(ctx context.Context, input inventory.RoomTypeInput) (domain.RoomType, error)
	SetAllotment(ctx context.Context, roomTypeID int64, start, end time.Time, allotment int) ([]domain.DayAvailability, error)
}

type RoomTypeHandler struct {
	service RoomTypeService
}

type roomTypeRequest struct {
	Name             string `json:"name" binding:"required"`
	MaxGuests        int    `json:"max_guests" binding:"required"`
	DefaultAllotment *int   `json:"default_allotment"`
	RateCents        int64  `json:"rate_cents"`
	Currency         string `json:"currency"`
}

type roomTypeResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	MaxGuests        int    `json:"max_guests"`
	DefaultAllotment int    `json:"default_allotment"`
	RateCents        int64  `json:"rate_cents"`
	Currency         string `json:"currency"`
}

type allotmentRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Allotment *int   `json:"allotment" binding:"required"`
}

func newRoomTypeResponse(rt domain.RoomType) roomTypeResponse {
	return roomTypeResponse{
		ID:               rt.ID,
		Name:             rt.Name,
		MaxGuests:        rt.MaxGuests,
		DefaultAllotment: rt.DefaultAllotment,
		RateCents:        rt.RateCents,
		Currency:         rt.Currency,
	}
}

func NewRoomTypeHandler(service RoomTypeService) *RoomTypeHandler {
	return &RoomTypeHandler{service: service}
}

func (h *RoomTypeHandler) Register(router gin.IRoutes) {
	router.GET("/room-types", h.list)
	router.PUT("/room-types/:id", h.upsert)
	router.PUT("/room-types/:id/inventory", h.setAllotment)
}

func (h *RoomTypeHandler) list(c *gin.Context) {
	roomTypes, err := h.service.ListRoomTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]roomTypeResponse, len(roomTypes))
	for i, rt := range roomTypes {
		out[i] = newRoomTypeResponse(rt)
	}
	c.JSON(http.StatusOK, out)
}

func (h *RoomTypeHandler) upsert(c *gin.Context) {
	id, ok := roomTypeID(c)
	if !ok {
		return
	}
	var req roomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rt, err := h.service.UpsertRoomType(c.Request.Context(), inventory.RoomTypeInput{
		ID:               id,
		Name:             req.Name,
		MaxGuests:        req.MaxGuests,
		DefaultAllotment: req.DefaultAllotment,
		RateCents:        req.RateCents,
		Currency:         req.Currency,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoomTypeResponse(rt))
}

func (h *RoomTypeHandler) setAllotment(c *gin.Context) {
	id, ok := roomTypeID(c)
	if !ok {
		return
	}
	var req allotmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		writeError(c, err)
		return
	}

	days, err := h.service.SetAllotment(c.Request.Context(), id, start, end, *req.Allotment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{RoomTypeID: id, Days: newDays(days)})
}

func roomTypeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid room type id")
		return 0, false
	}
	return id, true
}
