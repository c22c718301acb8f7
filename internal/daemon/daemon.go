package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"airlock/internal/airlock"
	"airlock/internal/api"
	"airlock/internal/blob"
	"airlock/internal/commit"
	"airlock/internal/config"
	"airlock/internal/ledger"
	"airlock/internal/logging"
	"airlock/internal/notifications"
	"airlock/internal/pipeline"
)

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *airlock.Store
	ledger  *ledger.Store
	manager *pipeline.Manager
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	DBPath       string
	LockFilePath string
	Queue        airlock.HealthSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *airlock.Store, lstore *ledger.Store, blobs *blob.Store, manager *pipeline.Manager, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || lstore == nil || manager == nil {
		return nil, errors.New("daemon requires config, stores, and pipeline manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "airlockd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		ledger:   lstore,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	queueSvc := api.NewQueueService(cfg, store, lstore, blobs)
	commitSvc := commit.NewService(cfg, store, lstore, nil, notifier, logger)
	srv, err := newAPIServer(cfg, d, queueSvc, commitSvc, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock and launches the pipeline manager and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another airlock daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.manager.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start pipeline manager: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.manager.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("airlock daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("airlock daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API listener address, or "" when the server is down.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health query failed", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Queue:        summary,
	}
}
