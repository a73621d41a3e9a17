package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errNoTx = errors.New("inventory rows can only be locked inside a transaction")

type PGInventoryRepository struct {
	db *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) *PGInventoryRepository {
	return &PGInventoryRepository{db: db}
}

func (r *PGInventoryRepository) LockDays(ctx context.Context, roomTypeID int64, nights []time.Time, allotment int) ([]domain.InventoryDay, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errNoTx
	}
	if len(nights) == 0 {
		return nil, nil
	}

	// Rows are inserted and locked in date order so that two stays with
	// overlapping nights never wait on each other in opposite directions.
	if _, err := tx.Exec(ctx, `
INSERT INTO inventory_days (room_type_id, stay_date, allotment)
SELECT $1, d, $3 FROM unnest($2::date[]) AS d ORDER BY d
ON CONFLICT (room_type_id, stay_date) DO NOTHING`, roomTypeID, nights, allotment); err != nil {
		return nil, mapError(fmt.Errorf("ensure inventory rows: %w", err))
	}

	rows, err := tx.Query(ctx, `
SELECT room_type_id, stay_date, allotment, booked_count, tentative_count
FROM inventory_days
WHERE room_type_id = $1 AND stay_date = ANY($2::date[])
ORDER BY stay_date
FOR UPDATE`, roomTypeID, nights)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock inventory rows: %w", err))
	}
	days, err := collectDays(rows)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock inventory rows: %w", err))
	}
	if len(days) != len(nights) {
		return nil, fmt.Errorf("lock inventory rows: got %d rows for %d nights", len(days), len(nights))
	}
	return days, nil
}

func (r *PGInventoryRepository) SaveDays(ctx context.Context, days []domain.InventoryDay) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errNoTx
	}

	batch := &pgx.Batch{}
	for _, d := range days {
		batch.Queue(`
UPDATE inventory_days
SET allotment = $3, booked_count = $4, tentative_count = $5, updated_at = now()
WHERE room_type_id = $1 AND stay_date = $2`, d.RoomTypeID, d.Date, d.Allotment, d.BookedCount, d.TentativeCount)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range days {
		tag, err := results.Exec()
		if err != nil {
			return mapError(fmt.Errorf("save inventory row: %w", err))
		}
		if tag.RowsAffected() != 1 {
			return errors.New("save inventory row: row vanished")
		}
	}
	return nil
}

// ReadDays relies on a single statement seeing one snapshot, so a multi-night
// commit is either fully visible or not at all.
func (r *PGInventoryRepository) ReadDays(ctx context.Context, roomTypeID int64, from, to time.Time) ([]domain.InventoryDay, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
SELECT room_type_id, stay_date, allotment, booked_count, tentative_count
FROM inventory_days
WHERE room_type_id = $1 AND stay_date >= $2 AND stay_date < $3
ORDER BY stay_date`, roomTypeID, from, to)
	if err != nil {
		return nil, mapError(fmt.Errorf("read inventory: %w", err))
	}
	days, err := collectDays(rows)
	if err != nil {
		return nil, mapError(fmt.Errorf("read inventory: %w", err))
	}
	return days, nil
}

func collectDays(rows pgx.Rows) ([]domain.InventoryDay, error) {
	defer rows.Close()

	days := make([]domain.InventoryDay, 0)
	for rows.Next() {
		var d domain.InventoryDay
		if err := rows.Scan(&d.RoomTypeID, &d.Date, &d.Allotment, &d.BookedCount, &d.TentativeCount); err != nil {
			return nil, err
		}
		d.Date = domain.Day(d.Date)
		days = append(days, d)
	}
	return days, rows.Err()
}

var _ InventoryRepository = (*PGInventoryRepository)(nil)
