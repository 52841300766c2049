package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"rocketshoes/pkg/cart"
	"rocketshoes/pkg/cart/memory"
	"rocketshoes/pkg/cart/postgres"
	"rocketshoes/pkg/cart/redis"
	"rocketshoes/pkg/catalog"
	"rocketshoes/pkg/config"
	"rocketshoes/pkg/logger"
	"rocketshoes/pkg/otel"
	"rocketshoes/pkg/toast"
)

// @title RocketShoes Cart API
// @version 1.0
// @description Shopping cart backed by the catalog stock service
// @host localhost:8443
// @BasePath /
func main() {
	var cfg config.API
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, level, "cart-api", otel.GetTraceID)
	defer log.Sync()

	if err := run(log, cfg); err != nil {
		log.Error(context.Background(), "shutdown", "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger, cfg config.API) error {
	ctx := context.Background()

	tp, shutdown, err := otel.InitTracing(log, otel.Config{
		ServiceName: "cart-api",
		Host:        cfg.OTELHost,
		Probability: cfg.OTELProbability,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdown(context.Background())

	storage, closeStorage, err := openStorage(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	toasts := toast.NewQueue(cfg.ToastLimit)
	store, err := cart.New(ctx, cart.Config{
		Storage:  storage,
		Catalog:  catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout),
		Notifier: toast.Multi(toasts, toast.Log(log)),
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	log.Info(ctx, "cart restored", "items", len(store.Cart()))

	a := &app{
		store:   store,
		toasts:  toasts,
		storage: storage,
		log:     log,
		tracer:  tp.Tracer("cart-api"),
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "tls", cfg.TLSCert != "")
		if cfg.TLSCert != "" {
			errc <- srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			return
		}
		errc <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server closed: %w", err)
		}
		return nil
	case s := <-sig:
		log.Info(ctx, "shutting down", "signal", s.String())
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// openStorage returns the configured cart backend and a function releasing it.
func openStorage(ctx context.Context, log *logger.Logger, cfg config.API) (cart.Storage, func(), error) {
	switch cfg.Storage {
	case "memory":
		log.Info(ctx, "using memory storage")
		return memory.New(), func() {}, nil

	case "redis":
		s := redis.Dial(cfg.RedisAddr)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info(ctx, "using redis storage", "addr", cfg.RedisAddr)
		return s, func() { s.Close() }, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		s := postgres.New(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("create table: %w", err)
		}
		log.Info(ctx, "using postgres storage")
		return s, func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}
