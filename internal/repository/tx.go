package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeInvalidText      = "22P02"
	codeLockNotAvailable = "55P03"
	codeDeadlockDetected = "40P01"
	codeQueryCanceled    = "57014"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// withTx bounds the whole transaction, connection acquisition included, by
// lockTimeout. Running out of that budget is reported as ErrLockTimeout.
func withTx(ctx context.Context, pool *pgxpool.Pool, lockTimeout time.Duration, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	bounded := ctx
	if lockTimeout > 0 {
		var cancel context.CancelFunc
		bounded, cancel = context.WithTimeout(ctx, lockTimeout)
		defer cancel()
	}

	tx, err := pool.BeginTx(bounded, pgx.TxOptions{})
	if err != nil {
		return deadlineError(ctx, bounded, mapError(fmt.Errorf("begin tx: %w", err)))
	}
	if lockTimeout > 0 {
		if _, err := tx.Exec(bounded, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback(ctx)
			return deadlineError(ctx, bounded, mapError(fmt.Errorf("set lock timeout: %w", err)))
		}
	}

	txCtx := context.WithValue(bounded, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return deadlineError(ctx, bounded, err)
	}
	if err := tx.Commit(bounded); err != nil {
		return deadlineError(ctx, bounded, mapError(fmt.Errorf("commit: %w", err)))
	}
	return nil
}

// deadlineError reports err as ErrLockTimeout when it was caused by the
// transaction deadline rather than by the caller's own context.
func deadlineError(parent, bounded context.Context, err error) error {
	if err == nil || parent.Err() != nil || errors.Is(err, domain.ErrLockTimeout) {
		return err
	}
	if !errors.Is(bounded.Err(), context.DeadlineExceeded) {
		return err
	}
	if !errors.Is(err, context.DeadlineExceeded) && !pgconn.Timeout(err) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapError translates driver failures into domain errors, keeping the cause.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected, codeQueryCanceled:
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	case codeCheckViolation:
		return fmt.Errorf("%w: %w", domain.ErrInvariantViolation, err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
