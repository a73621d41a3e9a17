package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/roomhold/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres backend. Every transaction carries a lock_timeout and
// a deadline of the same length, so neither contended rows nor an exhausted
// pool can hold a request longer than that.
type PGStore struct {
	*PGRoomTypeRepository
	*PGInventoryRepository
	*PGHoldRepository
	*PGBookingRepository

	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPGStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PGStore {
	return &PGStore{
		PGRoomTypeRepository:  NewRoomTypeRepository(pool),
		PGInventoryRepository: NewInventoryRepository(pool),
		PGHoldRepository:      NewHoldRepository(pool),
		PGBookingRepository:   NewBookingRepository(pool),
		pool:                  pool,
		lockTimeout:           lockTimeout,
	}
}

func (s *PGStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, s.lockTimeout, fn)
}

func (s *PGStore) Ping(ctx context.Context) error {
	return mapError(s.pool.Ping(ctx))
}

// NewPool builds a pgx pool sized from the database config.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

var _ Store = (*PGStore)(nil)
