package stats_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"loom/internal/queue"
	"loom/internal/stats"
	"loom/internal/testsupport"
)

func TestSnapshotTotalsAndRollup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "q1" })
	paused := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "p1" })
	processing := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "w1" })
	enriching := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "e1" })
	published := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "d1" })
	failed := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "f1" })

	mustPause(t, store, paused.ID)
	mustClaim(t, store, processing.ID)
	mustClaim(t, store, enriching.ID)
	if err := store.MarkEnriching(ctx, enriching.ID, "art-e", "run-e"); err != nil {
		t.Fatalf("MarkEnriching failed: %v", err)
	}
	mustClaim(t, store, published.ID)
	if err := store.Publish(ctx, published.ID); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	mustClaim(t, store, failed.ID)
	if err := store.Fail(ctx, failed.ID, "writer stage timed out"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	snapshot, err := stats.New(store).Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	totals := snapshot.Totals
	if totals.Total != 6 || totals.Queued != 1 || totals.Paused != 1 ||
		totals.Published != 1 || totals.Failed != 1 {
		t.Fatalf("unexpected totals: %#v", totals)
	}
	if totals.Processing != 1 || totals.Enriching != 1 || totals.InProgress != 2 {
		t.Fatalf("unexpected in-progress rollup: %#v", totals)
	}
	if snapshot.EngineRunning {
		t.Fatal("expected engine not running")
	}
}

func TestSnapshotActivityLogTemplates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	active := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
		p.Title, p.Slug = "Night shift survival guide", "night-shift"
	})
	published := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
		p.Title, p.Slug = "How to negotiate a BPO salary", "negotiate-bpo-salary"
	})
	failed := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
		p.Title, p.Slug = "Remote work setup", "remote-work"
	})

	mustClaim(t, store, active.ID)
	mustClaim(t, store, published.ID)
	if err := store.Publish(ctx, published.ID); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	mustClaim(t, store, failed.ID)
	if err := store.Fail(ctx, failed.ID, "Orchestrator failed"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	snapshot, err := stats.New(store).Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snapshot.Activity) != 3 {
		t.Fatalf("expected 3 activity entries, got %d", len(snapshot.Activity))
	}

	byID := make(map[int64]stats.ActivityEntry)
	for _, entry := range snapshot.Activity {
		byID[entry.ItemID] = entry
	}

	failedEntry := byID[failed.ID]
	if failedEntry.Kind != stats.ActivityError {
		t.Fatalf("expected error kind: %#v", failedEntry)
	}
	if failedEntry.Message != "Failed: Orchestrator failed (retry #1)" {
		t.Fatalf("unexpected failed message: %q", failedEntry.Message)
	}

	publishedEntry := byID[published.ID]
	if publishedEntry.Kind != stats.ActivitySuccess {
		t.Fatalf("expected success kind: %#v", publishedEntry)
	}
	want := `Published: "How to negotiate a BPO salary" → /insights/negotiate-bpo-salary`
	if publishedEntry.Message != want {
		t.Fatalf("unexpected published message: %q", publishedEntry.Message)
	}

	activeEntry := byID[active.ID]
	if activeEntry.Kind != stats.ActivityInfo {
		t.Fatalf("expected info kind: %#v", activeEntry)
	}
	if !strings.Contains(activeEntry.Message, `Processing: "Night shift survival guide"`) ||
		!strings.Contains(activeEntry.Message, "research stage") {
		t.Fatalf("unexpected processing message: %q", activeEntry.Message)
	}
}

func TestSnapshotActivityLogCap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Ten active and ten failed items exceed the 20-entry cap together with
	// five published ones.
	for i := 0; i < 10; i++ {
		item := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
			p.Slug = fmt.Sprintf("active-%d", i)
		})
		mustClaim(t, store, item.ID)
	}
	for i := 0; i < 10; i++ {
		item := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
			p.Slug = fmt.Sprintf("failed-%d", i)
		})
		mustClaim(t, store, item.ID)
		if err := store.Fail(ctx, item.ID, "boom"); err != nil {
			t.Fatalf("Fail failed: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		item := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
			p.Slug = fmt.Sprintf("published-%d", i)
		})
		mustClaim(t, store, item.ID)
		if err := store.Publish(ctx, item.ID); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	snapshot, err := stats.New(store).Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snapshot.Activity) != 20 {
		t.Fatalf("expected activity capped at 20, got %d", len(snapshot.Activity))
	}
	for i := 1; i < len(snapshot.Activity); i++ {
		if snapshot.Activity[i].Timestamp.After(snapshot.Activity[i-1].Timestamp) {
			t.Fatal("expected activity sorted newest first")
		}
	}
	if len(snapshot.ActiveItems) != 10 {
		t.Fatalf("expected 10 active items, got %d", len(snapshot.ActiveItems))
	}
	if len(snapshot.RecentFailed) != 5 || len(snapshot.RecentPublished) != 5 {
		t.Fatalf("expected recency slices capped at 5: failed=%d published=%d",
			len(snapshot.RecentFailed), len(snapshot.RecentPublished))
	}
}

func mustClaim(t *testing.T, store *queue.Store, id int64) {
	t.Helper()
	if ok, err := store.Claim(context.Background(), id, "research"); err != nil || !ok {
		t.Fatalf("claim %d failed: ok=%v err=%v", id, ok, err)
	}
}

func mustPause(t *testing.T, store *queue.Store, id int64) {
	t.Helper()
	if ok, err := store.Pause(context.Background(), id); err != nil || !ok {
		t.Fatalf("pause %d failed: ok=%v err=%v", id, ok, err)
	}
}
