package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/roomhold/config"
	"github.com/Domenick1991/roomhold/internal/cache"
	"github.com/Domenick1991/roomhold/internal/kafka"
	"github.com/Domenick1991/roomhold/internal/repository"
	"github.com/Domenick1991/roomhold/internal/repository/memory"
	"github.com/Domenick1991/roomhold/migrations"
	"go.uber.org/zap"
)

// OpenStore builds the configured storage backend. The returned function
// releases its resources.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Info("using in-memory storage")
		return memory.NewStore(memory.WithLockWait(cfg.Booking.LockWait)), func() {}, nil

	case config.StorageDriverPostgres:
		pool, err := repository.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if cfg.Database.Migrate {
			if err := migrations.Apply(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied")
		}
		return repository.NewPGStore(pool, cfg.Booking.LockWait), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

// OpenCache connects the room type cache when redis is configured. It
// returns nil when redis is not configured or unreachable.
func OpenCache(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *cache.RedisCache {
	if cfg.Addr == "" {
		return nil
	}
	c := cache.NewRedisCache(cfg)
	if err := c.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, room type cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = c.Close()
		return nil
	}
	return c
}

// OpenPublisher returns the lifecycle event publisher, or nil when no brokers
// are configured. Unreachable brokers are only logged since the writer
// reconnects on its own. The returned function closes the producer.
func OpenPublisher(ctx context.Context, cfg config.KafkaConfig, logger *zap.Logger) (*kafka.Publisher, func()) {
	if len(cfg.Brokers) == 0 {
		return nil, func() {}
	}
	producer := kafka.NewProducer(cfg.Brokers, logger.Named("producer"))
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := producer.CheckConnection(checkCtx); err != nil {
		logger.Warn("kafka unreachable, events will be retried by the writer", zap.Strings("brokers", cfg.Brokers), zap.Error(err))
	}
	closeFn := func() {
		if err := producer.Close(); err != nil {
			logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	return kafka.NewPublisher(producer, cfg.BookingEventsTopic, cfg.NotificationsTopic, logger), closeFn
}
