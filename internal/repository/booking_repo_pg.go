package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	guests, err := json.Marshal(b.Guests)
	if err != nil {
		return fmt.Errorf("encode guests: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, `
INSERT INTO bookings (id, hold_id, room_type_id, check_in, check_out, guests, payment_method, total_amount_cents, currency, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.HoldID, b.RoomTypeID, b.CheckIn, b.CheckOut, guests, b.PaymentMethod,
		b.TotalAmountCents, b.Currency, b.Status, b.CreatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return domain.ErrHoldNotActive
		}
		return mapError(fmt.Errorf("create booking: %w", err))
	}
	return nil
}

func (r *PGBookingRepository) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
SELECT id, hold_id, room_type_id, check_in, check_out, guests, payment_method, total_amount_cents, currency, status, created_at
FROM bookings WHERE id = $1`, id)

	var b domain.Booking
	var guests []byte
	if err := row.Scan(&b.ID, &b.HoldID, &b.RoomTypeID, &b.CheckIn, &b.CheckOut, &guests, &b.PaymentMethod, &b.TotalAmountCents, &b.Currency, &b.Status, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == codeInvalidText {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, mapError(fmt.Errorf("get booking: %w", err))
	}
	if err := json.Unmarshal(guests, &b.Guests); err != nil {
		return domain.Booking{}, fmt.Errorf("decode guests: %w", err)
	}
	b.CheckIn, b.CheckOut = domain.Day(b.CheckIn), domain.Day(b.CheckOut)
	return b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
