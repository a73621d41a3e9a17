package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/service/availability"
	"github.com/gin-gonic/gin"
)

type AvailabilityReader interface {
	GetAvailability(ctx context.Context, roomTypeID int64, start, end time.Time) ([]domain.DayAvailability, error)
}

type AvailabilitySearcher interface {
	Search(ctx context.Context, start, end time.Time, guests int) ([]availability.RoomTypeAvailability, error)
	VerifyIntegrity(ctx context.Context, roomTypeID int64, start, end time.Time) (availability.IntegrityReport, error)
}

type AvailabilityHandler struct {
	inventory AvailabilityReader
	search    AvailabilitySearcher
	now       func() time.Time
}

type dayResponse struct {
	Date           string `json:"date"`
	Allotment      int    `json:"allotment"`
	BookedCount    int    `json:"booked_count"`
	TentativeCount int    `json:"tentative_count"`
	Available      int    `json:"available"`
}

type availabilityResponse struct {
	RoomTypeID   int64         `json:"room_type_id"`
	Name         string        `json:"name,omitempty"`
	MaxGuests    int           `json:"max_guests,omitempty"`
	MinAvailable *int          `json:"min_available,omitempty"`
	Days         []dayResponse `json:"days"`
}

type searchResponse struct {
	StartDate string                 `json:"start_date"`
	EndDate   string                 `json:"end_date"`
	RoomTypes []availabilityResponse `json:"room_types"`
}

type integrityResponse struct {
	StartDate  string              `json:"start_date"`
	EndDate    string              `json:"end_date"`
	RoomTypes  int                 `json:"room_types"`
	DaysRead   int                 `json:"days_read"`
	OK         bool                `json:"ok"`
	Violations []violationResponse `json:"violations"`
}

type violationResponse struct {
	RoomTypeID     int64  `json:"room_type_id"`
	Date           string `json:"date"`
	Allotment      int    `json:"allotment"`
	BookedCount    int    `json:"booked_count"`
	TentativeCount int    `json:"tentative_count"`
}

func newDays(days []domain.DayAvailability) []dayResponse {
	out := make([]dayResponse, len(days))
	for i, d := range days {
		out[i] = dayResponse{
			Date:           domain.FormatDate(d.Date),
			Allotment:      d.Allotment,
			BookedCount:    d.BookedCount,
			TentativeCount: d.TentativeCount,
			Available:      d.Available,
		}
	}
	return out
}

func NewAvailabilityHandler(inventory AvailabilityReader, search AvailabilitySearcher) *AvailabilityHandler {
	return &AvailabilityHandler{inventory: inventory, search: search, now: time.Now}
}

func (h *AvailabilityHandler) Register(router gin.IRoutes) {
	router.GET("/availability", h.get)
	router.GET("/integrity", h.integrity)
}

// get serves one room type when room_type_id is given and a search across
// all room types otherwise.
func (h *AvailabilityHandler) get(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	if raw := c.Query("room_type_id"); raw != "" {
		roomTypeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || roomTypeID <= 0 {
			badRequest(c, "invalid room_type_id")
			return
		}
		days, err := h.inventory.GetAvailability(c.Request.Context(), roomTypeID, start, end)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, availabilityResponse{RoomTypeID: roomTypeID, Days: newDays(days)})
		return
	}

	guests := 0
	if raw := c.Query("guests"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid guests")
			return
		}
		guests = n
	}
	results, err := h.search.Search(c.Request.Context(), start, end, guests)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := searchResponse{
		StartDate: domain.FormatDate(start),
		EndDate:   domain.FormatDate(end),
		RoomTypes: make([]availabilityResponse, len(results)),
	}
	for i, r := range results {
		minAvailable := r.MinAvailable
		resp.RoomTypes[i] = availabilityResponse{
			RoomTypeID:   r.RoomType.ID,
			Name:         r.RoomType.Name,
			MaxGuests:    r.RoomType.MaxGuests,
			MinAvailable: &minAvailable,
			Days:         newDays(r.Days),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// integrity defaults to the year starting today when no range is given.
func (h *AvailabilityHandler) integrity(c *gin.Context) {
	start := domain.Day(h.now())
	end := start.AddDate(0, 0, 365)
	if c.Query("start_date") != "" || c.Query("end_date") != "" {
		var ok bool
		if start, end, ok = dateRange(c); !ok {
			return
		}
	}

	var roomTypeID int64
	if raw := c.Query("room_type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid room_type_id")
			return
		}
		roomTypeID = id
	}

	report, err := h.search.VerifyIntegrity(c.Request.Context(), roomTypeID, start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := integrityResponse{
		StartDate:  domain.FormatDate(report.Start),
		EndDate:    domain.FormatDate(report.End),
		RoomTypes:  report.RoomTypes,
		DaysRead:   report.DaysRead,
		OK:         report.OK(),
		Violations: make([]violationResponse, len(report.Violations)),
	}
	for i, d := range report.Violations {
		resp.Violations[i] = violationResponse{
			RoomTypeID:     d.RoomTypeID,
			Date:           domain.FormatDate(d.Date),
			Allotment:      d.Allotment,
			BookedCount:    d.BookedCount,
			TentativeCount: d.TentativeCount,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	rawStart, rawEnd := c.Query("start_date"), c.Query("end_date")
	if rawStart == "" || rawEnd == "" {
		badRequest(c, "start_date and end_date are required")
		return time.Time{}, time.Time{}, false
	}
	start, err := domain.ParseDate(rawStart)
	if err != nil {
		writeError(c, err)
		return time.Time{}, time.Time{}, false
	}
	end, err := domain.ParseDate(rawEnd)
	if err != nil {
		writeError(c, err)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
