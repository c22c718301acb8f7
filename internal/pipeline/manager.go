package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"airlock/internal/airlock"
	"airlock/internal/config"
	"airlock/internal/logging"
	"airlock/internal/notifications"
)

// Manager drives ingestion in daemon mode. It polls the store for QUEUED
// items and hands each to its own goroutine, bounded by the configured worker
// count. Items in flight send heartbeats; a monitor loop alerts on stale
// PROCESSING items but never reclaims them.
type Manager struct {
	cfg      *config.Config
	store    *airlock.Store
	pipeline *Pipeline
	notifier notifications.Service
	logger   *slog.Logger

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration

	workers chan struct{}

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	inflight map[int64]struct{}
	wg       sync.WaitGroup
}

// NewManager constructs a manager around an assembled pipeline.
func NewManager(cfg *config.Config, store *airlock.Store, pipe *Pipeline, notifier notifications.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	workerCount := cfg.Workflow.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Manager{
		cfg:               cfg,
		store:             store,
		pipeline:          pipe,
		notifier:          notifier,
		logger:            logging.NewComponentLogger(logger, "manager"),
		pollInterval:      time.Duration(cfg.Workflow.PollInterval) * time.Second,
		heartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		heartbeatTimeout:  time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
		workers:           make(chan struct{}, workerCount),
		inflight:          make(map[int64]struct{}),
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	go m.runPollLoop(runCtx)
	go m.runStaleMonitor(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight items.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runPollLoop(ctx context.Context) {
	defer m.wg.Done()

	interval := m.pollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.dispatchQueued(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) dispatchQueued(ctx context.Context) {
	items, err := m.store.List(ctx, airlock.StatusQueued)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("listing queued items failed", logging.Error(err))
		}
		return
	}

	for _, item := range items {
		if !m.claim(item.ID) {
			continue
		}
		select {
		case m.workers <- struct{}{}:
		case <-ctx.Done():
			m.release(item.ID)
			return
		}

		m.wg.Add(1)
		go func(item *airlock.Item) {
			defer m.wg.Done()
			defer func() { <-m.workers }()
			defer m.release(item.ID)
			m.processItem(ctx, item)
		}(item)
	}
}

func (m *Manager) claim(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[id]; busy {
		return false
	}
	m.inflight[id] = struct{}{}
	return true
}

func (m *Manager) release(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, id)
}

func (m *Manager) processItem(ctx context.Context, item *airlock.Item) {
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	if m.heartbeatInterval > 0 {
		hbWG.Add(1)
		go m.runHeartbeat(heartbeatCtx, &hbWG, item.ID)
	}

	_, err := m.pipeline.Process(ctx, UploadEvent{ItemID: item.ID})
	stopHeartbeat()
	hbWG.Wait()

	if err != nil && ctx.Err() == nil {
		m.logger.Error("queued item could not be resolved",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
	}
}

func (m *Manager) runHeartbeat(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldItemID, itemID),
					logging.Error(err),
				)
			}
		}
	}
}

func (m *Manager) runStaleMonitor(ctx context.Context) {
	defer m.wg.Done()
	if m.heartbeatTimeout <= 0 {
		return
	}
	interval := m.heartbeatInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.alertStale(ctx)
		}
	}
}

// alertStale reports PROCESSING items whose heartbeat expired. Stuck items
// stay PROCESSING; an operator decides whether to requeue them.
func (m *Manager) alertStale(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-m.heartbeatTimeout)
	stale, err := m.store.StaleProcessing(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("stale item query failed", logging.Error(err))
		}
		return
	}
	for _, item := range stale {
		m.logger.Warn("processing item went stale",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "heartbeat_stale"),
			logging.String(logging.FieldErrorHint, "inspect the worker; requeue the item if it is dead"),
		)
		if err := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
			"context": "stale item " + strconv.FormatInt(item.ID, 10),
			"error":   "no heartbeat since " + cutoff.Format(time.RFC3339),
		}); err != nil {
			m.logger.Warn("stale notification not delivered", logging.Error(err))
		}
	}
}
