// Package inventory owns the per-night counters of every room type: the
// transitions holds and bookings apply to them, allotment management and the
// availability read path.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/Domenick1991/roomhold/internal/metrics"
	"github.com/Domenick1991/roomhold/internal/repository"
	"go.uber.org/zap"
)

// Ledger applies counter transitions to locked inventory rows. Every method
// must run inside a transaction; the rows stay locked until it ends.
type Ledger struct {
	repo   repository.InventoryRepository
	logger *zap.Logger
}

func NewLedger(repo repository.InventoryRepository, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{repo: repo, logger: logger}
}

// Reserve adds one tentative unit to every night, or to none of them.
func (l *Ledger) Reserve(ctx context.Context, rt domain.RoomType, nights []time.Time) error {
	days, err := l.repo.LockDays(ctx, rt.ID, nights, rt.DefaultAllotment)
	if err != nil {
		return err
	}
	for _, d := range days {
		if d.Violated() {
			return l.violation("reserve", d)
		}
		if d.Available() < 1 {
			return fmt.Errorf("%w on %s", domain.ErrNoAvailability, domain.FormatDate(d.Date))
		}
	}
	for i := range days {
		days[i].TentativeCount++
	}
	return l.repo.SaveDays(ctx, days)
}

// Release returns one tentative unit on every night.
func (l *Ledger) Release(ctx context.Context, rt domain.RoomType, nights []time.Time) error {
	days, err := l.repo.LockDays(ctx, rt.ID, nights, rt.DefaultAllotment)
	if err != nil {
		return err
	}
	for i, d := range days {
		if d.TentativeCount < 1 {
			return l.violation("release", d)
		}
		days[i].TentativeCount--
	}
	return l.repo.SaveDays(ctx, days)
}

// Convert moves one unit from tentative to booked on every night after
// re-checking the invariant on each of them.
func (l *Ledger) Convert(ctx context.Context, rt domain.RoomType, nights []time.Time) error {
	days, err := l.repo.LockDays(ctx, rt.ID, nights, rt.DefaultAllotment)
	if err != nil {
		return err
	}
	for i, d := range days {
		if d.Violated() || d.TentativeCount < 1 {
			return l.violation("convert", d)
		}
		days[i].TentativeCount--
		days[i].BookedCount++
	}
	return l.repo.SaveDays(ctx, days)
}

func (l *Ledger) violation(op string, d domain.InventoryDay) error {
	metrics.InvariantViolations.Inc()
	l.logger.Error("inventory invariant violated",
		zap.String("operation", op),
		zap.Int64("room_type_id", d.RoomTypeID),
		zap.String("date", domain.FormatDate(d.Date)),
		zap.Int("allotment", d.Allotment),
		zap.Int("booked", d.BookedCount),
		zap.Int("tentative", d.TentativeCount),
	)
	return fmt.Errorf("%w: room type %d on %s", domain.ErrInvariantViolation, d.RoomTypeID, domain.FormatDate(d.Date))
}
