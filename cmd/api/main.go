package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/server"

	"go.uber.org/zap"
)

func main() {

	ctx := context.Background()

	// Environment
	if err := loadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	// Logger
	err = observability.InitLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	// Tracing
	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		panic(err)
	}
	defer traceShutdown(ctx)

	// Metrics
	metricShutdown, err := initMetrics(ctx)
	if err != nil {
		panic(err)
	}
	defer metricShutdown(ctx)

	// Log export
	if cfg.OTLPLogs {
		logShutdown, err := observability.InitLogging(ctx)
		if err != nil {
			panic(err)
		}
		defer logShutdown(ctx)
	}

	// Sessions
	store := calculator.NewStore(calculator.StoreOptions{
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Logger:      observability.Logger,
	})
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go store.Run(sweepCtx, cfg.SweepInterval)

	// Router
	router := server.NewRouter(calculator.NewHandler(store))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started", zap.String("addr", cfg.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()

	waitForShutdown(srv)
}

func waitForShutdown(srv *http.Server) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	observability.Logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Error("server shutdown", zap.Error(err))
	}
}
