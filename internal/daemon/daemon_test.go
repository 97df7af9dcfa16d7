package daemon_test

import (
	"context"
	"testing"
	"time"

	"loom/internal/daemon"
	"loom/internal/dispatch"
	"loom/internal/engine"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	eng := engine.New(cfg, store, successRunner(), stubEnricher{}, logger)
	worker := dispatch.NewWorker(cfg, store, eng, logger)
	first, err := daemon.New(cfg, store, eng, worker, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer first.Stop()

	secondWorker := dispatch.NewWorker(cfg, store, eng, logger)
	second, err := daemon.New(cfg, store, eng, secondWorker, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail on the lock")
	}
}

func TestDaemonDrivesAutoChain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Engine.DispatchPollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	first := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "first"; p.Priority = 2 })
	second := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "second" })

	eng := engine.New(cfg, store, successRunner(), stubEnricher{}, logger)
	worker := dispatch.NewWorker(cfg, store, eng, logger)
	d, err := daemon.New(cfg, store, eng, worker, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start failed: %v", err)
	}
	defer d.Stop()

	// Starting the engine seeds one dispatch; the worker then chains through
	// the whole queue.
	if started, err := eng.Start(ctx); err != nil || !started {
		t.Fatalf("engine start: started=%v err=%v", started, err)
	}

	deadline := time.After(10 * time.Second)
	for {
		a, _ := store.GetByID(ctx, first.ID)
		b, _ := store.GetByID(ctx, second.ID)
		if a != nil && b != nil &&
			a.Status == queue.StatusPublished && b.Status == queue.StatusPublished {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("queue was not drained: first=%s second=%s", a.Status, b.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}
}
