package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/roomhold/api"
	"github.com/Domenick1991/roomhold/config"
	"github.com/Domenick1991/roomhold/internal/bootstrap"
	"github.com/Domenick1991/roomhold/internal/logger"
	"github.com/Domenick1991/roomhold/internal/service/availability"
	"github.com/Domenick1991/roomhold/internal/service/booking"
	"github.com/Domenick1991/roomhold/internal/service/hold"
	"github.com/Domenick1991/roomhold/internal/service/inventory"
	"github.com/Domenick1991/roomhold/internal/service/sweeper"
	"github.com/Domenick1991/roomhold/internal/tracing"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher := bootstrap.OpenPublisher(ctx, cfg.Kafka, lg)
	defer closePublisher()

	inventoryOpts := []inventory.ServiceOption{
		inventory.WithLogger(lg.Named("inventory")),
		inventory.WithDefaultAllotment(cfg.Booking.DefaultAllotment),
		inventory.WithReadRetry(cfg.Booking.ReadRetries, cfg.Booking.ReadBackoff),
	}
	if roomTypeCache := bootstrap.OpenCache(ctx, cfg.Redis, lg); roomTypeCache != nil {
		defer roomTypeCache.Close()
		inventoryOpts = append(inventoryOpts, inventory.WithCache(roomTypeCache))
	}
	inventoryService := inventory.NewService(store, inventoryOpts...)

	holdOpts := []hold.ServiceOption{
		hold.WithLogger(lg.Named("hold")),
		hold.WithHoldTTL(cfg.Booking.HoldTTL),
		hold.WithMaxNights(cfg.Booking.MaxNights),
	}
	bookingOpts := []booking.BookingServiceOption{booking.WithLogger(lg.Named("booking"))}
	if publisher != nil {
		holdOpts = append(holdOpts, hold.WithPublisher(publisher))
		bookingOpts = append(bookingOpts, booking.WithPublisher(publisher))
	}
	holdService := hold.NewService(store, inventoryService.Ledger(), holdOpts...)
	bookingService := booking.NewBookingService(store, inventoryService.Ledger(), holdService, bookingOpts...)
	availabilityService := availability.NewService(inventoryService, store, lg.Named("availability"))

	deps := bootstrap.Deps{
		Logger: lg,
		Store:  store,
		Handlers: []api.Registrar{
			api.NewAvailabilityHandler(inventoryService, availabilityService),
			api.NewHoldHandler(holdService),
			api.NewBookingHandler(bookingService),
			api.NewRoomTypeHandler(inventoryService),
		},
	}
	if cfg.Worker.Embedded {
		sw := sweeper.New(store, holdService,
			sweeper.WithInterval(cfg.Worker.SweepInterval),
			sweeper.WithBatch(cfg.Worker.SweepBatch),
			sweeper.WithLogger(lg.Named("sweeper")),
		)
		deps.Background = append(deps.Background, sw.Run)
	}

	return bootstrap.Run(ctx, cfg, deps)
}
