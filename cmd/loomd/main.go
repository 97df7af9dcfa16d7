// Command loomd runs the loom daemon: the queue store, the production
// engine, the continuation dispatch worker, and the HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/dispatch"
	"loom/internal/engine"
	"loom/internal/logging"
	"loom/internal/media"
	"loom/internal/pipeline"
	"loom/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		os.Exit(1)
	}

	runner := pipeline.NewClient(cfg.Pipeline)
	var enricher media.Enricher
	if cfg.Media.Enabled {
		enricher = media.NewClient(cfg.Media)
	}

	eng := engine.New(cfg, store, runner, enricher, logger)
	worker := dispatch.NewWorker(cfg, store, eng, logger)

	d, err := daemon.New(cfg, store, eng, worker, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("loomd shutting down")
}
