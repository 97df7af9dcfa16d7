// Package dispatch consumes the durable dispatch queue. Every continuation a
// cycle schedules lands in the dispatches table; the worker polls that table
// and runs one engine cycle per dispatch, dead-lettering dispatches that keep
// crashing.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"loom/internal/config"
	"loom/internal/engine"
	"loom/internal/logging"
	"loom/internal/queue"
)

// CycleRunner is the slice of the engine the worker needs.
type CycleRunner interface {
	ProcessNext(ctx context.Context, mode engine.Mode) (*engine.CycleResult, error)
}

// Worker polls for pending dispatches and executes them sequentially.
type Worker struct {
	store       *queue.Store
	runner      CycleRunner
	logger      *slog.Logger
	poll        time.Duration
	errorRetry  time.Duration
	maxAttempts int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker constructs a dispatch worker from configuration.
func NewWorker(cfg *config.Config, store *queue.Store, runner CycleRunner, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	poll := time.Duration(cfg.Engine.DispatchPollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	errorRetry := time.Duration(cfg.Engine.ErrorRetryInterval) * time.Second
	if errorRetry <= 0 {
		errorRetry = 15 * time.Second
	}
	maxAttempts := cfg.Engine.DispatchMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Worker{
		store:       store,
		runner:      runner,
		logger:      logging.NewComponentLogger(logger, "dispatch"),
		poll:        poll,
		errorRetry:  errorRetry,
		maxAttempts: maxAttempts,
	}
}

// Start begins background polling.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("dispatch worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go w.run(runCtx)
	return nil
}

// Stop terminates background polling and waits for the in-flight dispatch to
// finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		processed, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := w.poll
		if err != nil {
			wait = w.errorRetry
		} else if processed {
			// Drain back-to-back dispatches without sleeping between them.
			continue
		}
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

// RunOnce claims at most one pending dispatch and executes it. It reports
// whether a dispatch was processed. A cycle that ends in a handled outcome
// (published, failed item, idle) completes the dispatch; only an engine error
// counts as a dispatch failure.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	pending, err := w.store.NextPendingDispatch(ctx)
	if err != nil {
		w.logger.Warn("dispatch poll failed",
			logging.String(logging.FieldEventType, "dispatch_poll_failed"),
			logging.Error(err))
		return false, err
	}
	if pending == nil {
		return false, nil
	}

	logger := w.logger.With(logging.Int64("dispatch_id", pending.ID))
	result, runErr := w.runner.ProcessNext(ctx, engine.ModeAuto)
	if runErr != nil {
		if failErr := w.store.FailDispatch(ctx, pending.ID, runErr.Error(), w.maxAttempts); failErr != nil {
			logger.Error("dispatch failure not recorded",
				logging.String(logging.FieldEventType, "dispatch_fail_lost"),
				logging.Error(failErr))
			return true, fmt.Errorf("record dispatch failure: %w", failErr)
		}
		logger.Warn("dispatch cycle errored",
			logging.String(logging.FieldEventType, "dispatch_errored"),
			logging.Int("attempt", pending.Attempts+1),
			logging.Error(runErr))
		return true, runErr
	}

	if err := w.store.CompleteDispatch(ctx, pending.ID); err != nil {
		logger.Error("dispatch completion not recorded",
			logging.String(logging.FieldEventType, "dispatch_complete_lost"),
			logging.Error(err))
		return true, fmt.Errorf("complete dispatch: %w", err)
	}
	logger.Info("dispatch consumed",
		logging.String(logging.FieldEventType, "dispatch_consumed"),
		logging.String("outcome", string(result.Outcome)))
	return true, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
