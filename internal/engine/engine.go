// Package engine runs processing cycles: select the next queued item, claim
// it, drive the content pipeline, run best-effort media enrichment, publish,
// and schedule the next cycle through the durable dispatch queue.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"loom/internal/brief"
	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/media"
	"loom/internal/pipeline"
	"loom/internal/queue"
	"loom/internal/services"
)

// Stage labels recorded on items while a cycle runs. Terminal statuses write
// their own labels.
const (
	StageResearch = "research"
	StageMedia    = "media"
)

// Mode distinguishes an operator-requested single cycle from the auto-run
// chain. Only auto cycles schedule a continuation.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeSingle Mode = "single"
)

// Outcome summarizes how a cycle ended.
type Outcome string

const (
	// OutcomeIdle means there was nothing queued to process.
	OutcomeIdle Outcome = "idle"
	// OutcomeNotClaimed means another cycle won the claim for the selected item.
	OutcomeNotClaimed Outcome = "not_claimed"
	// OutcomePublished means the pipeline succeeded and the item is published.
	OutcomePublished Outcome = "published"
	// OutcomeFailed means the pipeline failed and the item is marked failed.
	OutcomeFailed Outcome = "failed"
)

// CycleResult reports the outcome of one processing cycle.
type CycleResult struct {
	Outcome       Outcome
	Item          *queue.Item
	ArtifactURL   string
	QualityScore  float64
	PipelineRunID string
	Duration      time.Duration
	ErrorMessage  string
}

// Engine coordinates a single processing cycle at a time. All cross-cycle
// state lives in the queue store; the engine itself is stateless between
// cycles.
type Engine struct {
	cfg      *config.Config
	store    *queue.Store
	runner   pipeline.Runner
	enricher media.Enricher
	logger   *slog.Logger
}

// New constructs an engine. The enricher may be nil when media enrichment is
// disabled.
func New(cfg *config.Config, store *queue.Store, runner pipeline.Runner, enricher media.Enricher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		enricher: enricher,
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
}

// Start enables auto-run and seeds the dispatch queue. An empty queue is a
// no-op: nothing is dispatched and the auto-run flag is left untouched, so
// the call reports false without mutating any state.
func (e *Engine) Start(ctx context.Context) (bool, error) {
	queued, err := e.store.CountByStatus(ctx, queue.StatusQueued)
	if err != nil {
		return false, fmt.Errorf("count queued items: %w", err)
	}
	if queued == 0 {
		e.logger.Info("start requested with empty queue",
			logging.String(logging.FieldEventType, "engine_start_idle"))
		return false, nil
	}
	if err := e.store.SetAutoRun(ctx, true); err != nil {
		return false, fmt.Errorf("enable auto run: %w", err)
	}
	if _, err := e.store.EnqueueDispatch(ctx, queue.DispatchKindCycle); err != nil {
		return false, fmt.Errorf("seed dispatch queue: %w", err)
	}
	e.logger.Info("engine started",
		logging.String(logging.FieldEventType, "engine_start"),
		logging.Int("queued", queued))
	return true, nil
}

// Stop disables auto-run. An in-flight cycle is never aborted; stopping only
// prevents the next continuation from being scheduled.
func (e *Engine) Stop(ctx context.Context) error {
	if err := e.store.SetAutoRun(ctx, false); err != nil {
		return fmt.Errorf("disable auto run: %w", err)
	}
	e.logger.Info("engine stopped",
		logging.String(logging.FieldEventType, "engine_stop"))
	return nil
}

// ProcessNext runs one cycle against the highest priority queued item. An
// empty queue is not an error.
func (e *Engine) ProcessNext(ctx context.Context, mode Mode) (*CycleResult, error) {
	item, err := e.store.NextQueued(ctx)
	if err != nil {
		return nil, fmt.Errorf("select next item: %w", err)
	}
	if item == nil {
		e.logger.Info("queue empty",
			logging.String(logging.FieldEventType, "cycle_idle"))
		return &CycleResult{Outcome: OutcomeIdle}, nil
	}
	return e.runCycle(ctx, item, mode)
}

// ProcessItem runs one cycle against an explicit item, bypassing priority
// order. The item must still win the claim, so only queued items can be
// processed. Explicit requests never schedule a continuation.
func (e *Engine) ProcessItem(ctx context.Context, id int64) (*CycleResult, error) {
	item, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "engine", "process", fmt.Sprintf("item %d", id), nil)
	}
	return e.runCycle(ctx, item, ModeSingle)
}

func (e *Engine) runCycle(ctx context.Context, item *queue.Item, mode Mode) (*CycleResult, error) {
	cycleID := uuid.NewString()
	ctx = services.WithCycleID(services.WithItemID(ctx, item.ID), cycleID)
	logger := e.logger.With(
		logging.String(logging.FieldCycleID, cycleID),
		logging.Int64(logging.FieldItemID, item.ID),
	)

	claimed, err := e.store.Claim(ctx, item.ID, StageResearch)
	if err != nil {
		return nil, fmt.Errorf("claim item %d: %w", item.ID, err)
	}
	if !claimed {
		logger.Info("claim lost, aborting cycle",
			logging.String(logging.FieldEventType, "claim_lost"),
			logging.String("status", string(item.Status)))
		return &CycleResult{Outcome: OutcomeNotClaimed, Item: item}, nil
	}

	logger.Info("cycle started",
		logging.String(logging.FieldEventType, "cycle_start"),
		logging.String("title", item.Title),
		logging.String("silo", item.SiloName),
		logging.String("level", string(item.Level)))

	b := brief.Build(item)
	start := time.Now()
	result, runErr := e.runner.Run(ctx, pipeline.Request{
		Brief:        b,
		ForcePublish: e.cfg.Pipeline.ForcePublish,
		QueueItemID:  item.ID,
	})
	if runErr != nil {
		// Persist the orchestrator's reported reason verbatim; operators see
		// this message when deciding whether to retry.
		message := pipeline.FailureReason(runErr)
		if err := e.store.Fail(ctx, item.ID, message); err != nil {
			return nil, fmt.Errorf("record failure for item %d: %w", item.ID, err)
		}
		logger.Error("pipeline run failed",
			logging.String(logging.FieldEventType, "cycle_failed"),
			logging.Error(runErr),
			logging.Duration("elapsed", time.Since(start)))
		return &CycleResult{
			Outcome:      OutcomeFailed,
			Item:         item,
			Duration:     time.Since(start),
			ErrorMessage: queue.TruncateError(message),
		}, nil
	}

	if err := e.store.MarkEnriching(ctx, item.ID, result.Artifact.ID, result.PipelineRunID); err != nil {
		return nil, fmt.Errorf("record pipeline output for item %d: %w", item.ID, err)
	}

	e.enrich(ctx, logger, item, result)

	if err := e.store.Publish(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("publish item %d: %w", item.ID, err)
	}
	logger.Info("cycle published",
		logging.String(logging.FieldEventType, "cycle_published"),
		logging.String("artifact_url", result.Artifact.URL),
		logging.Float64("quality", result.QualityScore),
		logging.Duration("pipeline_duration", result.Duration))

	if mode == ModeAuto {
		e.scheduleContinuation(ctx, logger)
	}

	return &CycleResult{
		Outcome:       OutcomePublished,
		Item:          item,
		ArtifactURL:   result.Artifact.URL,
		QualityScore:  result.QualityScore,
		PipelineRunID: result.PipelineRunID,
		Duration:      result.Duration,
	}, nil
}

// enrich drives the media follow-up stage. Every outcome is non-fatal:
// rolling back a successful pipeline run over optional media would discard
// real progress.
func (e *Engine) enrich(ctx context.Context, logger *slog.Logger, item *queue.Item, result *pipeline.Result) {
	if e.enricher == nil || !e.cfg.Media.Enabled {
		return
	}
	if err := e.store.Advance(ctx, item.ID, StageMedia); err != nil {
		logger.Warn("stage label update failed",
			logging.String(logging.FieldEventType, "stage_update_failed"),
			logging.Error(err))
	}
	enriched, err := e.enricher.Enrich(ctx, media.Request{
		ArtifactID:    result.Artifact.ID,
		ArticleSlug:   artifactSlug(item, result),
		Title:         artifactTitle(item, result),
		Content:       result.Artifact.Content,
		Keywords:      item.TargetKeywords,
		Category:      item.SiloName,
		PipelineRunID: result.PipelineRunID,
		QueueItemID:   item.ID,
	})
	if err != nil {
		logger.Warn("media enrichment failed, publishing without media",
			logging.String(logging.FieldEventType, "enrich_failed"),
			logging.Error(err))
		return
	}
	logger.Info("media enrichment complete",
		logging.String(logging.FieldEventType, "enrich_done"),
		logging.Bool("video", enriched.VideoGenerated),
		logging.Int("images", enriched.ImageCount))
}

// scheduleContinuation enqueues the next auto cycle when the engine is still
// running and work remains. Failures are logged only; the chain stalls until
// an operator issues a new start.
func (e *Engine) scheduleContinuation(ctx context.Context, logger *slog.Logger) {
	running, err := e.store.AutoRun(ctx)
	if err != nil {
		logger.Warn("auto-run check failed, continuation skipped",
			logging.String(logging.FieldEventType, "dispatch_skipped"),
			logging.Error(err))
		return
	}
	if !running {
		logger.Info("auto-run disabled, continuation skipped",
			logging.String(logging.FieldEventType, "dispatch_skipped"))
		return
	}
	queued, err := e.store.CountByStatus(ctx, queue.StatusQueued)
	if err != nil {
		logger.Warn("queued count failed, continuation skipped",
			logging.String(logging.FieldEventType, "dispatch_skipped"),
			logging.Error(err))
		return
	}
	if queued == 0 {
		logger.Info("queue drained",
			logging.String(logging.FieldEventType, "queue_drained"))
		return
	}
	if _, err := e.store.EnqueueDispatch(ctx, queue.DispatchKindCycle); err != nil {
		logger.Warn("continuation dispatch failed",
			logging.String(logging.FieldEventType, "dispatch_failed"),
			logging.Error(err))
		return
	}
	logger.Info("continuation scheduled",
		logging.String(logging.FieldEventType, "dispatch_scheduled"),
		logging.Int("remaining", queued))
}

func artifactSlug(item *queue.Item, result *pipeline.Result) string {
	if result.Artifact.Slug != "" {
		return result.Artifact.Slug
	}
	return item.Slug
}

func artifactTitle(item *queue.Item, result *pipeline.Result) string {
	if result.Artifact.Title != "" {
		return result.Artifact.Title
	}
	return item.Title
}
