// Package stats derives read-only dashboard views from the queue store:
// per-status counts, silo breakdowns, recency slices, and a unified activity
// log. Nothing here mutates state.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"loom/internal/queue"
)

const (
	activeLimit   = 10
	nextUpLimit   = 5
	recentLimit   = 5
	activityLimit = 20
)

// Totals carries per-status counts plus the in-progress rollup.
type Totals struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Paused     int `json:"paused"`
	Processing int `json:"processing"`
	Enriching  int `json:"enriching"`
	InProgress int `json:"inProgress"`
	Published  int `json:"published"`
	Failed     int `json:"failed"`
}

// ActivityKind classifies an activity entry for display.
type ActivityKind string

const (
	ActivityError   ActivityKind = "error"
	ActivitySuccess ActivityKind = "success"
	ActivityInfo    ActivityKind = "info"
)

// ActivityEntry is one line of the unified activity log.
type ActivityEntry struct {
	ItemID    int64        `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Title     string       `json:"articleTitle"`
	SiloName  string       `json:"siloName"`
	Status    queue.Status `json:"stage"`
	Kind      ActivityKind `json:"type"`
	Message   string       `json:"message"`
}

// Snapshot is the full dashboard payload.
type Snapshot struct {
	Totals          Totals            `json:"stats"`
	Silos           []queue.SiloStats `json:"siloStats"`
	ActiveItems     []*queue.Item     `json:"activeItems"`
	NextUp          []*queue.Item     `json:"nextUp"`
	RecentPublished []*queue.Item     `json:"recentPublished"`
	RecentFailed    []*queue.Item     `json:"failedItems"`
	Activity        []ActivityEntry   `json:"activityLog"`
	EngineRunning   bool              `json:"engineRunning"`
}

// Aggregator computes snapshots against a queue store.
type Aggregator struct {
	store *queue.Store
}

// New constructs an aggregator.
func New(store *queue.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Snapshot assembles the dashboard view in one pass.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	counts, err := a.store.CountsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	totals := Totals{
		Queued:     counts[queue.StatusQueued],
		Paused:     counts[queue.StatusPaused],
		Processing: counts[queue.StatusProcessing],
		Enriching:  counts[queue.StatusEnriching],
		Published:  counts[queue.StatusPublished],
		Failed:     counts[queue.StatusFailed],
	}
	totals.InProgress = totals.Processing + totals.Enriching
	totals.Total = totals.Queued + totals.Paused + totals.InProgress + totals.Published + totals.Failed

	silos, err := a.store.SiloBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("silo breakdown: %w", err)
	}
	active, err := a.store.ActiveItems(ctx, activeLimit)
	if err != nil {
		return nil, fmt.Errorf("active items: %w", err)
	}
	nextUp, err := a.store.NextUp(ctx, nextUpLimit)
	if err != nil {
		return nil, fmt.Errorf("next up: %w", err)
	}
	published, err := a.store.RecentPublished(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent published: %w", err)
	}
	failed, err := a.store.RecentFailed(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent failed: %w", err)
	}
	running, err := a.store.AutoRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("auto-run flag: %w", err)
	}

	return &Snapshot{
		Totals:          totals,
		Silos:           silos,
		ActiveItems:     active,
		NextUp:          nextUp,
		RecentPublished: published,
		RecentFailed:    failed,
		Activity:        buildActivityLog(active, published, failed),
		EngineRunning:   running,
	}, nil
}

// buildActivityLog merges the three recency slices by update time, newest
// first, capped at the activity limit.
func buildActivityLog(slices ...[]*queue.Item) []ActivityEntry {
	var merged []*queue.Item
	for _, slice := range slices {
		merged = append(merged, slice...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UpdatedAt.After(merged[j].UpdatedAt)
	})
	if len(merged) > activityLimit {
		merged = merged[:activityLimit]
	}

	entries := make([]ActivityEntry, 0, len(merged))
	for _, item := range merged {
		entries = append(entries, ActivityEntry{
			ItemID:    item.ID,
			Timestamp: item.UpdatedAt,
			Title:     item.Title,
			SiloName:  item.SiloName,
			Status:    item.Status,
			Kind:      activityKind(item.Status),
			Message:   activityMessage(item),
		})
	}
	return entries
}

func activityKind(status queue.Status) ActivityKind {
	switch status {
	case queue.StatusFailed:
		return ActivityError
	case queue.StatusPublished:
		return ActivitySuccess
	default:
		return ActivityInfo
	}
}

func activityMessage(item *queue.Item) string {
	switch item.Status {
	case queue.StatusFailed:
		message := item.ErrorMessage
		if message == "" {
			message = "Unknown error"
		}
		return fmt.Sprintf("Failed: %s (retry #%d)", message, item.RetryCount)
	case queue.StatusPublished:
		return fmt.Sprintf("Published: %q → /insights/%s", item.Title, item.Slug)
	default:
		stage := item.Stage
		if stage == "" {
			stage = string(item.Status)
		}
		return fmt.Sprintf("Processing: %q — %s stage", item.Title, stage)
	}
}
