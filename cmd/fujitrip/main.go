package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/amqp"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/backend"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/cache"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/config"
	apphttp "github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/http"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/ledger"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/storage"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/weather"
)

const weatherCacheTTL = 10 * time.Minute

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger backend
	factory := backend.NewFactory(logger)
	result, err := factory.CreateStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize ledger backend",
			log.FieldError, err.Error(), log.FieldBackend, cfg.LedgerBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("backend cleanup failed", log.FieldError, err.Error())
			}
		}()
	}

	// Local snapshot and trip state
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize sqlite repository",
			log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	serviceOpts := []ledger.Option{ledger.WithMirror(repo)}

	// Event publishing is optional; the ledger works without a broker.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to initialize amqp client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		serviceOpts = append(serviceOpts, ledger.WithEvents(amqpClient))
		logger.Info("amqp event publishing enabled",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	svc := ledger.NewService(result.Store, cfg.SheetLayout(), logger, serviceOpts...)

	// Warm the snapshot; a down backend should not keep the server from
	// starting when a mirrored copy exists.
	if _, err := svc.Refresh(ctx); err != nil {
		logger.Warn("initial ledger fetch failed", log.FieldError, err.Error())
	}

	weatherClient := weather.New(cfg.WeatherLatitude, cfg.WeatherLongitude,
		cfg.WeatherTimezone, weatherCacheTTL)

	cacheManager := cache.NewManager()
	cacheManager.Register(weatherClient)
	cacheManager.StartCleanup(weatherCacheTTL)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger,
		apphttp.WithStateStore(repo),
		apphttp.WithWeather(weatherClient))

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("starting fujitrip server",
		"port", cfg.Port, log.FieldBackend, cfg.LedgerBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
