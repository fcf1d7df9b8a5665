package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/amqp"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/backend"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/config"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/storage"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("starting fujitrip-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize sqlite repository",
			log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

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

	mirrorWorker := worker.NewMirrorWorker(result.Store, repo,
		cfg.SheetLayout(), cfg.RefreshInterval, logger)

	g, gctx := errgroup.WithContext(ctx)

	// Periodic mirroring keeps the snapshot fresh even when no events arrive.
	g.Go(func() error {
		return mirrorWorker.Run(gctx)
	})

	// Ledger events trigger an immediate re-mirror so the snapshot catches
	// mutations ahead of the next tick.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to initialize amqp client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			return amqpClient.ConsumeLedgerEvents(gctx, func(msg *amqp.LedgerEventMessage) error {
				return mirrorWorker.HandleEvent(gctx, msg)
			})
		})
		logger.Info("consuming ledger events",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("amqp disabled, running on refresh interval only",
			"interval", cfg.RefreshInterval.String())
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}
