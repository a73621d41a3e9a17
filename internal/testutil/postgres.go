// Package testutil opens the Postgres backend for integration tests. Tests
// using it are skipped unless TEST_DATABASE_URL points at a database.
package testutil

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/Domenick1991/roomhold/internal/repository"
	"github.com/Domenick1991/roomhold/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewTestPool connects to TEST_DATABASE_URL and applies the migrations.
func NewTestPool(t testing.TB, maxConns int32) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse TEST_DATABASE_URL: %v", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

// NewTestStore returns a Postgres store with the given lock wait.
func NewTestStore(t testing.TB, maxConns int32, lockWait time.Duration) *repository.PGStore {
	t.Helper()
	return repository.NewPGStore(NewTestPool(t, maxConns), lockWait)
}

// RoomTypeID returns a random id so tests can share one database without
// truncating it.
func RoomTypeID() int64 {
	return rand.Int63n(1<<52) + 1
}
