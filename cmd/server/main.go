package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Noble200/nose-sub001/internal/cache"
	"github.com/Noble200/nose-sub001/internal/config"
	"github.com/Noble200/nose-sub001/internal/httpapi"
	"github.com/Noble200/nose-sub001/internal/jobs"
	"github.com/Noble200/nose-sub001/internal/logger"
	"github.com/Noble200/nose-sub001/internal/reconcile"
	"github.com/Noble200/nose-sub001/internal/service"
	"github.com/Noble200/nose-sub001/internal/store"
	"github.com/Noble200/nose-sub001/internal/store/memory"
	pgstore "github.com/Noble200/nose-sub001/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err := validateRuntimeConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid runtime configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var docs store.DocumentStore
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, cfg.TxMaxAttempts)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		docs = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("document store: postgres")
	} else {
		docs = memory.NewSeeded(cfg.TxMaxAttempts)
		log.Info().Msg("document store: in-memory")
	}

	deliverables := cache.DeliverableCache(cache.NoopDeliverableCache{})
	var alerts service.StockAlerter
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDeliverableCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache and no stock alerts")
			_ = redisCache.Close()
		} else {
			deliverables = redisCache
			closers = append(closers, redisCache.Close)

			jobClient := jobs.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, cfg.AsynqQueue)
			alerts = jobClient
			closers = append(closers, jobClient.Close)
			log.Info().Str("queue", cfg.AsynqQueue).Msg("cache: redis, stock alerts: asynq")
		}
	} else {
		log.Info().Msg("cache: noop")
	}

	svc := service.New(docs, service.Options{
		Cache:    deliverables,
		CacheTTL: cfg.DeliverableCacheTTL,
		Alerts:   alerts,
		Logger:   log,
		Policy:   reconcile.Policy{RejectOverRequest: !cfg.ClampOverRequest},
	})
	api := httpapi.New(svc, httpapi.Config{
		AllowedOrigin:      cfg.AllowedOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Production:         cfg.IsProduction(),
		Logger:             log,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("farm backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	waitForShutdown(log, server, closers)
}

func waitForShutdown(log zerolog.Logger, server *http.Server, closers []func() error) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}
	log.Info().Msg("server stopped")
}

// validateRuntimeConfig rejects settings that are only acceptable for local development.
func validateRuntimeConfig(cfg config.Config) error {
	if !cfg.IsProduction() {
		return nil
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must be set in production; the in-memory store loses data on restart")
	}
	origin := strings.TrimSpace(cfg.AllowedOrigin)
	if origin == "" || origin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name the UI origin in production, got %q", cfg.AllowedOrigin)
	}
	return nil
}
