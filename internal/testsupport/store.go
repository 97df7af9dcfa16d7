package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/queue"
)

// MustOpenStore opens a queue store against the test config and registers
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedItem enqueues a queue item with sensible defaults, applying overrides
// through the params function.
func SeedItem(t testing.TB, store *queue.Store, mutate func(*queue.NewItemParams)) *queue.Item {
	t.Helper()

	params := queue.NewItemParams{
		Title:          "How to negotiate a BPO salary",
		Slug:           "negotiate-bpo-salary",
		SiloID:         "silo-1",
		SiloName:       "Careers",
		ClusterName:    "salary",
		Level:          queue.LevelSupporting,
		TargetKeywords: []string{"bpo salary", "salary negotiation"},
		ContentSummary: "Practical salary negotiation advice.",
		Priority:       1,
	}
	if mutate != nil {
		mutate(&params)
	}

	item, err := store.Enqueue(context.Background(), params)
	if err != nil {
		t.Fatalf("enqueue item: %v", err)
	}
	return item
}
