// Package sweeper reclaims the inventory of holds that ran past their deadline.
package sweeper

import (
	"context"
	"time"

	"github.com/Domenick1991/roomhold/internal/clock"
	"github.com/Domenick1991/roomhold/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("roomhold/sweeper")

type ExpiredHoldLister interface {
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// HoldExpirer releases one hold if it is still active and past its deadline.
type HoldExpirer interface {
	ExpireHold(ctx context.Context, id string) (bool, error)
}

type Sweeper struct {
	lister   ExpiredHoldLister
	expirer  HoldExpirer
	clock    clock.Clock
	logger   *zap.Logger
	interval time.Duration
	batch    int
}

type Option func(*Sweeper)

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithBatch(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(lister ExpiredHoldLister, expirer HoldExpirer, opts ...Option) *Sweeper {
	s := &Sweeper{
		lister:   lister,
		expirer:  expirer,
		clock:    clock.NewSystem(),
		logger:   zap.NewNop(),
		interval: 30 * time.Second,
		batch:    500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep releases up to one batch of expired holds and returns how many it
// released. A hold that fails is logged and left for the next pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "sweeper.sweep", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	ids, err := s.lister.ListExpiredHolds(ctx, s.clock.Now(), s.batch)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.expirer.ExpireHold(ctx, id)
		if err != nil {
			s.logger.Warn("failed to expire hold", zap.String("hold_id", id), zap.Error(err))
			continue
		}
		if ok {
			released++
		}
	}

	span.SetAttributes(attribute.Int("candidates", len(ids)), attribute.Int("released", released))
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	if released > 0 {
		s.logger.Info("expired holds released", zap.Int("released", released), zap.Int("candidates", len(ids)))
	}
	return released, ctx.Err()
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval), zap.Int("batch", s.batch))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
