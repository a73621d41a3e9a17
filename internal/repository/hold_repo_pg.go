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

type PGHoldRepository struct {
	db *pgxpool.Pool
}

func NewHoldRepository(db *pgxpool.Pool) *PGHoldRepository {
	return &PGHoldRepository{db: db}
}

const holdColumns = `id, room_type_id, check_in, check_out, guests, status, COALESCE(idempotency_key, ''), created_at, expires_at, updated_at`

func (r *PGHoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
INSERT INTO holds (id, room_type_id, check_in, check_out, guests, status, idempotency_key, created_at, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $8)`,
		hold.ID, hold.RoomTypeID, hold.CheckIn, hold.CheckOut, hold.Guests, hold.Status,
		hold.IdempotencyKey, hold.CreatedAt, hold.ExpiresAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return domain.ErrIdempotencyConflict
		}
		return mapError(fmt.Errorf("create hold: %w", err))
	}
	return nil
}

func (r *PGHoldRepository) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	return r.getHold(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, id)
}

func (r *PGHoldRepository) GetHoldForUpdate(ctx context.Context, id string) (domain.Hold, error) {
	if txFromContext(ctx) == nil {
		return domain.Hold{}, errNoTx
	}
	return r.getHold(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGHoldRepository) getHold(ctx context.Context, query, id string) (domain.Hold, error) {
	h, err := scanHold(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == codeInvalidText {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, mapError(fmt.Errorf("get hold: %w", err))
	}
	return h, nil
}

func (r *PGHoldRepository) FindHoldByIdempotencyKey(ctx context.Context, roomTypeID int64, key string) (*domain.Hold, error) {
	h, err := scanHold(conn(ctx, r.db).QueryRow(ctx, `SELECT `+holdColumns+` FROM holds WHERE room_type_id = $1 AND idempotency_key = $2`, roomTypeID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(fmt.Errorf("find hold by idempotency key: %w", err))
	}
	return &h, nil
}

func (r *PGHoldRepository) UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus, at time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE holds SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return mapError(fmt.Errorf("update hold status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *PGHoldRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
SELECT id FROM holds
WHERE status = $1 AND expires_at <= $2
ORDER BY expires_at
LIMIT $3`, domain.HoldStatusActive, now, limit)
	if err != nil {
		return nil, mapError(fmt.Errorf("list expired holds: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan hold id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, mapError(rows.Err())
}

func scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	err := row.Scan(&h.ID, &h.RoomTypeID, &h.CheckIn, &h.CheckOut, &h.Guests, &h.Status, &h.IdempotencyKey, &h.CreatedAt, &h.ExpiresAt, &h.UpdatedAt)
	h.CheckIn, h.CheckOut = domain.Day(h.CheckIn), domain.Day(h.CheckOut)
	return h, err
}

var _ HoldRepository = (*PGHoldRepository)(nil)
