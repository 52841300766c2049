package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"rocketshoes/pkg/catalog/server"
	"rocketshoes/pkg/config"
	"rocketshoes/pkg/logger"
	"rocketshoes/pkg/otel"
)

func main() {
	var cfg config.Catalog
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, level, "catalog", otel.GetTraceID)
	defer log.Sync()

	if err := run(log, cfg); err != nil {
		log.Error(context.Background(), "shutdown", "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger, cfg config.Catalog) error {
	ctx := context.Background()

	_, shutdown, err := otel.InitTracing(log, otel.Config{
		ServiceName: "catalog",
		Host:        cfg.OTELHost,
		Probability: cfg.OTELProbability,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdown(context.Background())

	data, err := server.Load(cfg.DataFile)
	if err != nil {
		return err
	}
	log.Info(ctx, "catalog loaded", "products", len(data.Products), "stock", len(data.Stock))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("catalog"))
	server.New(data, log).Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr)
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
