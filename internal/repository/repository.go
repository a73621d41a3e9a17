package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
)

// Transactor runs fn inside a transaction carried by the context passed to fn.
// Row locks taken inside fn are held until fn returns; an error rolls back
// everything fn wrote.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RoomTypeRepository interface {
	GetRoomType(ctx context.Context, id int64) (domain.RoomType, error)
	ListRoomTypes(ctx context.Context) ([]domain.RoomType, error)
	UpsertRoomType(ctx context.Context, rt *domain.RoomType) error
}

type InventoryRepository interface {
	// LockDays locks the rows of the given nights in ascending date order,
	// creating missing rows with the given allotment. Only valid inside WithTx.
	LockDays(ctx context.Context, roomTypeID int64, nights []time.Time, allotment int) ([]domain.InventoryDay, error)
	// SaveDays writes counters of rows previously returned by LockDays.
	SaveDays(ctx context.Context, days []domain.InventoryDay) error
	// ReadDays returns the existing rows in [from, to) as one consistent snapshot.
	ReadDays(ctx context.Context, roomTypeID int64, from, to time.Time) ([]domain.InventoryDay, error)
}

type HoldRepository interface {
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, id string) (domain.Hold, error)
	// GetHoldForUpdate locks the hold row until the transaction ends.
	GetHoldForUpdate(ctx context.Context, id string) (domain.Hold, error)
	FindHoldByIdempotencyKey(ctx context.Context, roomTypeID int64, key string) (*domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, at time.Time) error
	// ListExpiredHolds returns ids of active holds with expires_at <= now, oldest first.
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
}

// Store is the full storage surface, implemented by the Postgres and in-memory backends.
type Store interface {
	Transactor
	RoomTypeRepository
	InventoryRepository
	HoldRepository
	BookingRepository
	Ping(ctx context.Context) error
}
