package queue_test

import (
	"context"
	"testing"

	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestEnqueueAndGetByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.SeedItem(t, store, nil)
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusQueued {
		t.Fatalf("expected new item queued, got %s", item.Status)
	}
	if item.RetryCount != 0 {
		t.Fatalf("expected zero retry count, got %d", item.RetryCount)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != item.Title {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if len(fetched.TargetKeywords) != 2 || fetched.TargetKeywords[0] != "bpo salary" {
		t.Fatalf("keywords did not round-trip: %#v", fetched.TargetKeywords)
	}

	missing, err := store.GetByID(ctx, 99999)
	if err != nil {
		t.Fatalf("GetByID for missing id failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing item, got %#v", missing)
	}
}

func TestEnqueueRequiresTitleAndSlug(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Enqueue(ctx, queue.NewItemParams{Slug: "x"}); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, err := store.Enqueue(ctx, queue.NewItemParams{Title: "x"}); err == nil {
		t.Fatal("expected error for missing slug")
	}
}

func TestNextQueuedOrdersByPriorityThenAge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
		p.Title, p.Slug, p.Priority = "A", "a", 5
	})
	b := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
		p.Title, p.Slug, p.Priority = "B", "b", 1
	})
	c := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) {
		p.Title, p.Slug, p.Priority = "C", "c", 5
	})

	next, err := store.NextQueued(ctx)
	if err != nil {
		t.Fatalf("NextQueued failed: %v", err)
	}
	if next == nil || next.ID != a.ID {
		t.Fatalf("expected item A first, got %#v", next)
	}

	// Selection order drains A, then C (same priority, newer), then B.
	expected := []int64{a.ID, c.ID, b.ID}
	for _, want := range expected {
		next, err := store.NextQueued(ctx)
		if err != nil {
			t.Fatalf("NextQueued failed: %v", err)
		}
		if next == nil || next.ID != want {
			t.Fatalf("expected item %d next, got %#v", want, next)
		}
		claimed, err := store.Claim(ctx, next.ID, "writing")
		if err != nil || !claimed {
			t.Fatalf("claim of %d failed: claimed=%v err=%v", next.ID, claimed, err)
		}
	}

	empty, err := store.NextQueued(ctx)
	if err != nil {
		t.Fatalf("NextQueued failed: %v", err)
	}
	if empty != nil {
		t.Fatalf("expected empty queue, got %#v", empty)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	queued := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "queued" })
	claimed := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "claimed" })
	if ok, err := store.Claim(ctx, claimed.ID, "research"); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}

	onlyQueued, err := store.List(ctx, queue.StatusQueued)
	if err != nil {
		t.Fatalf("List by status failed: %v", err)
	}
	if len(onlyQueued) != 1 || onlyQueued[0].ID != queued.ID {
		t.Fatalf("unexpected filtered result: %#v", onlyQueued)
	}

	count, err := store.CountByStatus(ctx, queue.StatusQueued)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 queued item, got %d", count)
	}
}

func TestCountsByStatusAndSiloBreakdown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug, p.SiloName = "q1", "Careers" })
	paused := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug, p.SiloName = "p1", "Careers" })
	failed := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug, p.SiloName = "f1", "Jobs" })
	published := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug, p.SiloName = "d1", "Jobs" })

	if ok, err := store.Pause(ctx, paused.ID); err != nil || !ok {
		t.Fatalf("pause failed: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Claim(ctx, failed.ID, "writing"); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.Fail(ctx, failed.ID, "boom"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	if ok, err := store.Claim(ctx, published.ID, "writing"); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.Publish(ctx, published.ID); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	counts, err := store.CountsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountsByStatus failed: %v", err)
	}
	if counts[queue.StatusQueued] != 1 || counts[queue.StatusPaused] != 1 ||
		counts[queue.StatusFailed] != 1 || counts[queue.StatusPublished] != 1 {
		t.Fatalf("unexpected counts: %#v", counts)
	}

	silos, err := store.SiloBreakdown(ctx)
	if err != nil {
		t.Fatalf("SiloBreakdown failed: %v", err)
	}
	byName := make(map[string]queue.SiloStats, len(silos))
	for _, silo := range silos {
		byName[silo.SiloName] = silo
	}
	careers := byName["Careers"]
	if careers.Total != 2 || careers.Queued != 2 {
		t.Fatalf("unexpected Careers stats (paused should count as queued): %#v", careers)
	}
	jobs := byName["Jobs"]
	if jobs.Total != 2 || jobs.Failed != 1 || jobs.Published != 1 {
		t.Fatalf("unexpected Jobs stats: %#v", jobs)
	}
}

func TestRecencyViews(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inflight := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "inflight" })
	done := testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "done" })
	testsupport.SeedItem(t, store, func(p *queue.NewItemParams) { p.Slug = "waiting" })

	if ok, err := store.Claim(ctx, inflight.ID, "research"); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Claim(ctx, done.ID, "research"); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	if err := store.Publish(ctx, done.ID); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	active, err := store.ActiveItems(ctx, 10)
	if err != nil {
		t.Fatalf("ActiveItems failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != inflight.ID {
		t.Fatalf("unexpected active items: %#v", active)
	}

	nextUp, err := store.NextUp(ctx, 5)
	if err != nil {
		t.Fatalf("NextUp failed: %v", err)
	}
	if len(nextUp) != 1 || nextUp[0].Slug != "waiting" {
		t.Fatalf("unexpected next up: %#v", nextUp)
	}

	published, err := store.RecentPublished(ctx, 5)
	if err != nil {
		t.Fatalf("RecentPublished failed: %v", err)
	}
	if len(published) != 1 || published[0].ID != done.ID {
		t.Fatalf("unexpected recent published: %#v", published)
	}
}
