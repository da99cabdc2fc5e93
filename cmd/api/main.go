package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/cart"
	"github.com/ariefcatur/go-storefront-bff/internal/config"
	"github.com/ariefcatur/go-storefront-bff/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-bff/internal/kafka"
	"github.com/ariefcatur/go-storefront-bff/internal/logger"
	"github.com/ariefcatur/go-storefront-bff/internal/postgres"
	"github.com/ariefcatur/go-storefront-bff/internal/redisx"
	"github.com/ariefcatur/go-storefront-bff/internal/session"
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
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer, keyed by session id
	events := kafkax.NewProducer(cfg.KafkaBrokers, storefront.TopicSessionEvents, 1024, log)
	events.Start()

	api := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	carts := cart.NewService(api, cart.NewRedisMirror(rdb, cfg.CartMirrorTTL), cart.NewSnapshotRepo(db),
		events, cfg.ServiceName, log)
	sessions := session.NewService(session.NewRepo(db), api, carts, events, cfg.ServiceName, log)

	router := httpx.NewRouter(log, cfg.TrustProxy)
	httpx.Mount(router, httpx.Deps{
		Sessions:        sessions,
		Carts:           carts,
		Catalog:         api,
		Admin:           api,
		Validator:       storefront.NewValidator(),
		Cookies:         httpx.Cookies{Secure: cfg.Production(), MaxAge: cfg.CookieMaxAge},
		LoginRatePerMin: cfg.LoginRatePerMin,
		Log:             log,
	})

	refresher := session.NewRefresher(sessions, carts, cfg.TokenRefreshInterval, cfg.CookieMaxAge, log)
	go refresher.Run(ctx)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel() // stop refresher
	events.Close()
	events.WaitClosed()
}
