package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arhyth/bankxmov"
	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfp := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	cfg, err := bankxmov.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	engine, err := cfg.EngineConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("error reading engine config")
	}
	node, err := snowflake.NewNode(cfg.Snowflake.Node)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting id generator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo bankxmov.Repository
	switch cfg.Database.Storage {
	case bankxmov.StorageMemory:
		store := bankxmov.NewInmemStore()
		if err = bankxmov.SeedInmem(store, cfg.Seed, node, time.Now()); err != nil {
			logger.Fatal().Err(err).Msg("error seeding memory store")
		}
		repo = store
	default:
		pgendpt, err := bankxmov.NewPostgresEndpoint(ctx, cfg.Database.ConnectionString, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("error starting database")
		}
		defer pgendpt.Close()
		repo = pgendpt
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Metrics wrap validation so malformed requests are counted as rejections.
	svc := bankxmov.Chain(
		bankxmov.NewService(repo, node, engine, &logger),
		bankxmov.NewMetricsMiddleware(bankxmov.NewServiceMetrics(reg)),
		bankxmov.NewValidationMiddleware(),
		bankxmov.NewCircuitBreakMiddleware(cfg.ServiceBreaker()),
		bankxmov.NewlimitMiddleware(cfg.ServiceLimits()),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", bankxmov.NewHTTPHandler(svc, &logger))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("storage", cfg.Database.Storage).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Err(err).Msg("error shutting down server")
	}
	logger.Info().Msg("server stopped")
}
