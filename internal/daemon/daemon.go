package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"loom/internal/config"
	"loom/internal/dispatch"
	"loom/internal/engine"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/stats"
)

// Daemon wires the queue store, engine, dispatch worker, and HTTP API
// together and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	engine *engine.Engine
	worker *dispatch.Worker
	stats  *stats.Aggregator
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	EngineRunning  bool
	QueueDBPath    string
	LockFilePath   string
	QueuedItems    int
	DeadDispatches int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, eng *engine.Engine, worker *dispatch.Worker, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil || worker == nil {
		return nil, errors.New("daemon requires config, store, engine, and dispatch worker")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   eng,
		worker:   worker,
		stats:    stats.New(store),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock and launches the dispatch worker and the
// HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another loom daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.worker.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start dispatch worker: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.worker.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("queue_db", d.store.Path()))
	return nil
}

// Stop terminates the API server and dispatch worker and releases the lock.
// An in-flight cycle finishes before the worker returns.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("daemon lock release failed",
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon and releases the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// APIAddr reports the bound API address, empty until started.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status reports runtime state for the status endpoint.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if running, err := d.store.AutoRun(ctx); err == nil {
		status.EngineRunning = running
	}
	if queued, err := d.store.CountByStatus(ctx, queue.StatusQueued); err == nil {
		status.QueuedItems = queued
	}
	if dead, err := d.store.DeadLetterDispatches(ctx); err == nil {
		status.DeadDispatches = len(dead)
	}
	return status
}
