package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"airlock/internal/airlock"
	"airlock/internal/blob"
	"airlock/internal/daemon"
	"airlock/internal/ledger"
	"airlock/internal/logging"
	"airlock/internal/notifications"
	"airlock/internal/parser"
	"airlock/internal/pipeline"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon lifecycle",
	}

	daemonCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the ingestion daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	})

	return daemonCmd
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := airlock.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	lstore := ledger.NewStore(store.DB())
	blobs, err := blob.NewStore(cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("init blob store: %w", err)
	}

	notifier := notifications.NewService(cfg)
	pipe := pipeline.New(cfg, store, blobs, parser.New(cfg), notifier, pipeline.NewRunner(logger), logger)
	manager := pipeline.NewManager(cfg, store, pipe, notifier, logger)

	d, err := daemon.New(cfg, store, lstore, blobs, manager, notifier, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("airlock daemon shutting down")
	return nil
}
