package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/roomhold/config"
	"github.com/Domenick1991/roomhold/internal/bootstrap"
	"github.com/Domenick1991/roomhold/internal/email"
	"github.com/Domenick1991/roomhold/internal/kafka"
	"github.com/Domenick1991/roomhold/internal/logger"
	"github.com/Domenick1991/roomhold/internal/service/hold"
	"github.com/Domenick1991/roomhold/internal/service/inventory"
	"github.com/Domenick1991/roomhold/internal/service/sweeper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// The worker runs the expiry sweeper out of process and delivers booking
// notifications from the notifications topic.
func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Fatalf("worker needs shared storage; storage.driver is %q", cfg.Storage.Driver)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("worker error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher := bootstrap.OpenPublisher(ctx, cfg.Kafka, lg)
	defer closePublisher()

	holdOpts := []hold.ServiceOption{hold.WithLogger(lg.Named("hold"))}
	if publisher != nil {
		holdOpts = append(holdOpts, hold.WithPublisher(publisher))
	}
	ledger := inventory.NewLedger(store, lg.Named("inventory"))
	holdService := hold.NewService(store, ledger, holdOpts...)
	sw := sweeper.New(store, holdService,
		sweeper.WithInterval(cfg.Worker.SweepInterval),
		sweeper.WithBatch(cfg.Worker.SweepBatch),
		sweeper.WithLogger(lg.Named("sweeper")),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sw.Run(gctx) })

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg.Named("consumer"))
		defer consumer.Close()
		sender := email.NewSender(lg.Named("email"))
		g.Go(func() error { return consumer.Consume(gctx, sender.Send) })
	} else {
		lg.Info("no kafka brokers configured, notifications disabled")
	}

	return g.Wait()
}
