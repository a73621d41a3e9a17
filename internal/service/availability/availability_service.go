// Package availability answers read-only questions across room types:
// searches over a date range and integrity audits of the counters.
package availability

import (
	"context"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/metrics"
	"github.com/Domenick1991/roomhold/internal/service/inventory"
	"go.uber.org/zap"
)

type Inventory interface {
	RoomType(ctx context.Context, id int64) (domain.RoomType, error)
	ListRoomTypes(ctx context.Context) ([]domain.RoomType, error)
	GetAvailability(ctx context.Context, roomTypeID int64, start, end time.Time) ([]domain.DayAvailability, error)
}

type DayReader interface {
	ReadDays(ctx context.Context, roomTypeID int64, from, to time.Time) ([]domain.InventoryDay, error)
}

type RoomTypeAvailability struct {
	RoomType domain.RoomType
	Days     []domain.DayAvailability
	// MinAvailable is the number of rooms bookable for the whole range.
	MinAvailable int
}

type IntegrityReport struct {
	Start      time.Time
	End        time.Time
	RoomTypes  int
	DaysRead   int
	Violations []domain.InventoryDay
}

func (r IntegrityReport) OK() bool {
	return len(r.Violations) == 0
}

type Service struct {
	inventory Inventory
	days      DayReader
	logger    *zap.Logger
}

func NewService(inv Inventory, days DayReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{inventory: inv, days: days, logger: logger}
}

// Search returns the availability of every room type that sleeps at least
// guests (0 matches all) for each night of [start, end).
func (s *Service) Search(ctx context.Context, start, end time.Time, guests int) ([]RoomTypeAvailability, error) {
	if err := domain.ValidateRange(start, end, inventory.MaxRangeDays); err != nil {
		return nil, err
	}
	if guests < 0 {
		return nil, domain.ErrInvalidGuests
	}
	roomTypes, err := s.inventory.ListRoomTypes(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RoomTypeAvailability, 0, len(roomTypes))
	for _, rt := range roomTypes {
		if guests > rt.MaxGuests {
			continue
		}
		days, err := s.inventory.GetAvailability(ctx, rt.ID, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, RoomTypeAvailability{RoomType: rt, Days: days, MinAvailable: minAvailable(days)})
	}
	return out, nil
}

// VerifyIntegrity reads the stored counters of one room type, or of all of
// them when roomTypeID is 0, and reports every night whose booked and
// tentative counts exceed its allotment.
func (s *Service) VerifyIntegrity(ctx context.Context, roomTypeID int64, start, end time.Time) (IntegrityReport, error) {
	if err := domain.ValidateRange(start, end, inventory.MaxRangeDays); err != nil {
		return IntegrityReport{}, err
	}

	var roomTypes []domain.RoomType
	if roomTypeID != 0 {
		rt, err := s.inventory.RoomType(ctx, roomTypeID)
		if err != nil {
			return IntegrityReport{}, err
		}
		roomTypes = []domain.RoomType{rt}
	} else {
		var err error
		if roomTypes, err = s.inventory.ListRoomTypes(ctx); err != nil {
			return IntegrityReport{}, err
		}
	}

	report := IntegrityReport{Start: start, End: end, RoomTypes: len(roomTypes), Violations: []domain.InventoryDay{}}
	for _, rt := range roomTypes {
		days, err := s.days.ReadDays(ctx, rt.ID, start, end)
		if err != nil {
			return IntegrityReport{}, err
		}
		report.DaysRead += len(days)
		for _, d := range days {
			if !d.Violated() {
				continue
			}
			metrics.InvariantViolations.Inc()
			s.logger.Error("inventory invariant violated",
				zap.String("operation", "verify"),
				zap.Int64("room_type_id", d.RoomTypeID),
				zap.String("date", domain.FormatDate(d.Date)),
				zap.Int("allotment", d.Allotment),
				zap.Int("booked", d.BookedCount),
				zap.Int("tentative", d.TentativeCount),
			)
			report.Violations = append(report.Violations, d)
		}
	}
	return report, nil
}

func minAvailable(days []domain.DayAvailability) int {
	if len(days) == 0 {
		return 0
	}
	m := days[0].Available
	for _, d := range days[1:] {
		if d.Available < m {
			m = d.Available
		}
	}
	if m < 0 {
		return 0
	}
	return m
}
