package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/service/hold"
	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

type HoldHandler struct {
	service hold.HoldUseCase
}

type createHoldRequest struct {
	RoomTypeID   int64  `json:"room_type_id" binding:"required"`
	CheckInDate  string `json:"check_in_date" binding:"required"`
	CheckOutDate string `json:"check_out_date" binding:"required"`
	Guests       *int   `json:"guests"`
}

type holdResponse struct {
	HoldID       string `json:"hold_id"`
	RoomTypeID   int64  `json:"room_type_id"`
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
	Guests       int    `json:"guests"`
	Status       string `json:"status"`
	ExpiresAt    string `json:"expires_at"`
	CreatedAt    string `json:"created_at"`
}

func newHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		HoldID:       h.ID,
		RoomTypeID:   h.RoomTypeID,
		CheckInDate:  domain.FormatDate(h.CheckIn),
		CheckOutDate: domain.FormatDate(h.CheckOut),
		Guests:       h.Guests,
		Status:       strings.ToLower(string(h.Status)),
		ExpiresAt:    h.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:    h.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewHoldHandler(service hold.HoldUseCase) *HoldHandler {
	return &HoldHandler{service: service}
}

func (h *HoldHandler) Register(router gin.IRoutes) {
	router.POST("/holds", h.create)
	router.GET("/holds/:id", h.get)
	router.POST("/holds/:id/cancel", h.cancel)
}

func (h *HoldHandler) create(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	checkIn, err := domain.ParseDate(req.CheckInDate)
	if err != nil {
		writeError(c, err)
		return
	}
	checkOut, err := domain.ParseDate(req.CheckOutDate)
	if err != nil {
		writeError(c, err)
		return
	}
	guests := 1
	if req.Guests != nil {
		guests = *req.Guests
	}

	created, err := h.service.CreateHold(c.Request.Context(), hold.CreateHoldInput{
		RoomTypeID:     req.RoomTypeID,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Guests:         guests,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newHoldResponse(created))
}

func (h *HoldHandler) get(c *gin.Context) {
	found, err := h.service.GetHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newHoldResponse(found))
}

func (h *HoldHandler) cancel(c *gin.Context) {
	canceled, err := h.service.CancelHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newHoldResponse(canceled))
}
