package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/cart"
	"github.com/ariefcatur/go-storefront-bff/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-bff/internal/kafka"
	"github.com/ariefcatur/go-storefront-bff/internal/logger"
	"github.com/ariefcatur/go-storefront-bff/internal/mirror"
	"github.com/ariefcatur/go-storefront-bff/internal/postgres"
	"github.com/ariefcatur/go-storefront-bff/internal/redisx"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &mirror.Service{
		Snapshots:  cart.NewSnapshotRepo(db),
		Carts:      cart.NewRedisMirror(rdb, cfg.CartMirrorTTL),
		Dedup:      mirror.NewRedisDeduper(rdb, cfg.ServiceName+"-mirror"),
		Tombstones: mirror.NewRedisTombstones(rdb),
		Log:        log.Named("mirror"),
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.MirrorGroup, storefront.TopicSessionEvents, cfg.MirrorWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("mirror consumer started",
			zap.String("group", cfg.MirrorGroup), zap.String("topic", storefront.TopicSessionEvents), zap.Int("workers", cfg.MirrorWorkers))
		if err := cons.Start(ctx, svc.Handle); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
}
