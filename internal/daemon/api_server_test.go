package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"loom/internal/api"
	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/dispatch"
	"loom/internal/engine"
	"loom/internal/logging"
	"loom/internal/media"
	"loom/internal/pipeline"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

type stubRunner struct {
	result *pipeline.Result
	err    error
}

func (s *stubRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubEnricher struct{}

func (stubEnricher) Enrich(ctx context.Context, req media.Request) (*media.Result, error) {
	return &media.Result{ImageCount: 3}, nil
}

func startTestDaemon(t *testing.T, cfg *config.Config, runner pipeline.Runner) (*daemon.Daemon, *queue.Store, string) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	eng := engine.New(cfg, store, runner, stubEnricher{}, logger)
	worker := dispatch.NewWorker(cfg, store, eng, logger)

	d, err := daemon.New(cfg, store, eng, worker, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start failed: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})
	return d, store, "http://" + d.APIAddr()
}

func successRunner() *stubRunner {
	return &stubRunner{result: &pipeline.Result{
		Artifact: pipeline.Artifact{
			ID:      "art-1",
			Title:   "How to negotiate a BPO salary",
			Slug:    "negotiate-bpo-salary",
			URL:     "/insights/negotiate-bpo-salary",
			Content: "body",
		},
		QualityScore:  90,
		PipelineRunID: "run-1",
		Duration:      time.Second,
	}}
}

func doJSON(t *testing.T, method, url string, payload any, out any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestQueueEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, _, base := startTestDaemon(t, cfg, successRunner())

	var created api.QueueItemResponse
	resp := doJSON(t, http.MethodPost, base+"/api/queue", api.AddItemRequest{
		Title:          "How to negotiate a BPO salary",
		Slug:           "negotiate-bpo-salary",
		SiloName:       "Careers",
		Level:          "supporting",
		TargetKeywords: []string{"bpo salary"},
		Priority:       2,
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if created.Item.ID == 0 || created.Item.Status != "queued" {
		t.Fatalf("unexpected created item: %#v", created.Item)
	}

	var list api.QueueListResponse
	if resp := doJSON(t, http.MethodGet, base+"/api/queue?status=queued", nil, &list); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(list.Items) != 1 || list.Items[0].ID != created.Item.ID {
		t.Fatalf("unexpected list: %#v", list.Items)
	}

	var described api.QueueItemResponse
	url := fmt.Sprintf("%s/api/queue/%d", base, created.Item.ID)
	if resp := doJSON(t, http.MethodGet, url, nil, &described); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if described.Item.Title != created.Item.Title {
		t.Fatalf("unexpected item: %#v", described.Item)
	}

	if resp := doJSON(t, http.MethodGet, base+"/api/queue/99999", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, base+"/api/queue?status=bogus", nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestQueueItemActions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, store, base := startTestDaemon(t, cfg, successRunner())

	item := testsupport.SeedItem(t, store, nil)

	var paused api.ActionResponse
	url := fmt.Sprintf("%s/api/queue/%d/pause", base, item.ID)
	if resp := doJSON(t, http.MethodPost, url, nil, &paused); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !paused.Applied || paused.Item == nil || paused.Item.Status != "paused" {
		t.Fatalf("unexpected pause response: %#v", paused)
	}

	// Pausing again is a recorded no-op.
	var again api.ActionResponse
	doJSON(t, http.MethodPost, url, nil, &again)
	if again.Applied {
		t.Fatalf("expected second pause not applied: %#v", again)
	}

	if resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/queue/%d/bogus", base, item.ID), nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", resp.StatusCode)
	}
}

func TestEngineProcessEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, store, base := startTestDaemon(t, cfg, successRunner())

	item := testsupport.SeedItem(t, store, nil)

	var cycle api.CycleResponse
	if resp := doJSON(t, http.MethodPost, base+"/api/engine/process", nil, &cycle); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !cycle.Success || cycle.Outcome != "published" {
		t.Fatalf("unexpected cycle response: %#v", cycle)
	}
	if cycle.Item == nil || cycle.Item.ID != item.ID {
		t.Fatalf("unexpected cycle item: %#v", cycle.Item)
	}

	updated, _ := store.GetByID(context.Background(), item.ID)
	if updated.Status != queue.StatusPublished {
		t.Fatalf("expected item published, got %s", updated.Status)
	}

	// Queue drained; another process call reports idle.
	var idle api.CycleResponse
	doJSON(t, http.MethodPost, base+"/api/engine/process", nil, &idle)
	if idle.Outcome != "idle" || idle.Processed {
		t.Fatalf("unexpected idle response: %#v", idle)
	}
}

func TestEngineStartStopEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, store, base := startTestDaemon(t, cfg, successRunner())

	// Starting with nothing queued changes no state.
	var idle api.EngineStateResponse
	if resp := doJSON(t, http.MethodPost, base+"/api/engine/start", nil, &idle); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if idle.EngineRunning || idle.Message != "Nothing to process" {
		t.Fatalf("unexpected idle start response: %#v", idle)
	}
	if running, _ := store.AutoRun(context.Background()); running {
		t.Fatal("empty-queue start must not enable auto-run")
	}

	testsupport.SeedItem(t, store, nil)

	var started api.EngineStateResponse
	if resp := doJSON(t, http.MethodPost, base+"/api/engine/start", nil, &started); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !started.EngineRunning {
		t.Fatalf("unexpected start response: %#v", started)
	}
	if running, _ := store.AutoRun(context.Background()); !running {
		t.Fatal("expected auto-run persisted")
	}

	var stopped api.EngineStateResponse
	doJSON(t, http.MethodPost, base+"/api/engine/stop", nil, &stopped)
	if stopped.EngineRunning {
		t.Fatalf("unexpected stop response: %#v", stopped)
	}
	if running, _ := store.AutoRun(context.Background()); running {
		t.Fatal("expected auto-run cleared")
	}
}

func TestStatsAndStatusEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store, base := startTestDaemon(t, cfg, successRunner())

	testsupport.SeedItem(t, store, nil)

	var stats api.StatsResponse
	if resp := doJSON(t, http.MethodGet, base+"/api/stats", nil, &stats); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if stats.Totals["queued"] != 1 || stats.Totals["total"] != 1 {
		t.Fatalf("unexpected totals: %#v", stats.Totals)
	}
	if len(stats.NextUp) != 1 {
		t.Fatalf("unexpected next up: %#v", stats.NextUp)
	}

	var status api.DaemonStatus
	if resp := doJSON(t, http.MethodGet, base+"/api/status", nil, &status); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !status.Running || status.QueuedItems != 1 {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.QueueDBPath != store.Path() {
		t.Fatalf("unexpected queue db path: %q", status.QueueDBPath)
	}
	_ = d
}

func TestBearerTokenAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "sekrit"
	_, _, base := startTestDaemon(t, cfg, successRunner())

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", authed.StatusCode)
	}
}
