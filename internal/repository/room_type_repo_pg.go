package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGRoomTypeRepository struct {
	db *pgxpool.Pool
}

func NewRoomTypeRepository(db *pgxpool.Pool) *PGRoomTypeRepository {
	return &PGRoomTypeRepository{db: db}
}

const roomTypeColumns = `id, name, max_guests, default_allotment, rate_cents, currency, created_at, updated_at`

func (r *PGRoomTypeRepository) GetRoomType(ctx context.Context, id int64) (domain.RoomType, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE id=$1`, id)
	rt, err := scanRoomType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RoomType{}, domain.ErrRoomTypeNotFound
		}
		return domain.RoomType{}, mapError(fmt.Errorf("get room type: %w", err))
	}
	return rt, nil
}

func (r *PGRoomTypeRepository) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+roomTypeColumns+` FROM room_types ORDER BY id`)
	if err != nil {
		return nil, mapError(fmt.Errorf("list room types: %w", err))
	}
	defer rows.Close()

	roomTypes := make([]domain.RoomType, 0)
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room type: %w", err)
		}
		roomTypes = append(roomTypes, rt)
	}
	return roomTypes, mapError(rows.Err())
}

func (r *PGRoomTypeRepository) UpsertRoomType(ctx context.Context, rt *domain.RoomType) error {
	row := conn(ctx, r.db).QueryRow(ctx, `
INSERT INTO room_types (id, name, max_guests, default_allotment, rate_cents, currency)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	max_guests = EXCLUDED.max_guests,
	default_allotment = EXCLUDED.default_allotment,
	rate_cents = EXCLUDED.rate_cents,
	currency = EXCLUDED.currency,
	updated_at = now()
RETURNING created_at, updated_at`,
		rt.ID, rt.Name, rt.MaxGuests, rt.DefaultAllotment, rt.RateCents, rt.Currency)
	if err := row.Scan(&rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return mapError(fmt.Errorf("upsert room type: %w", err))
	}
	return nil
}

func scanRoomType(row pgx.Row) (domain.RoomType, error) {
	var rt domain.RoomType
	err := row.Scan(&rt.ID, &rt.Name, &rt.MaxGuests, &rt.DefaultAllotment, &rt.RateCents, &rt.Currency, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}

var _ RoomTypeRepository = (*PGRoomTypeRepository)(nil)
