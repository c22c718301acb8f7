package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"airlock/internal/airlock"
	"airlock/internal/blob"
	"airlock/internal/config"
	"airlock/internal/daemon"
	"airlock/internal/ledger"
	"airlock/internal/logging"
	"airlock/internal/notifications"
	"airlock/internal/parser"
	"airlock/internal/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := airlock.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}

	lstore := ledger.NewStore(store.DB())
	blobs, err := blob.NewStore(cfg)
	if err != nil {
		logger.Error("init blob store", logging.Error(err))
		_ = store.Close()
		return
	}

	notifier := notifications.NewService(cfg)
	pipe := pipeline.New(cfg, store, blobs, parser.New(cfg), notifier, pipeline.NewRunner(logger), logger)
	manager := pipeline.NewManager(cfg, store, pipe, notifier, logger)

	d, err := daemon.New(cfg, store, lstore, blobs, manager, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("airlockd shutting down")
}
