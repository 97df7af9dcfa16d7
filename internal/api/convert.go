package api

import (
	"time"

	"loom/internal/engine"
	"loom/internal/queue"
	"loom/internal/stats"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:             item.ID,
		Title:          item.Title,
		Slug:           item.Slug,
		SiloID:         item.SiloID,
		SiloName:       item.SiloName,
		ClusterName:    item.ClusterName,
		Level:          string(item.Level),
		TargetKeywords: item.TargetKeywords,
		ContentSummary: item.ContentSummary,
		Priority:       item.Priority,
		Status:         string(item.Status),
		Stage:          item.Stage,
		RetryCount:     item.RetryCount,
		ErrorMessage:   item.ErrorMessage,
		PipelineRunID:  item.PipelineRunID,
		ArtifactID:     item.ArtifactID,
	}
	dto.StartedAt = formatTimePtr(item.StartedAt)
	dto.CompletedAt = formatTimePtr(item.CompletedAt)
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records.
func FromQueueItems(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromSnapshot converts a stats snapshot into the dashboard payload.
func FromSnapshot(snapshot *stats.Snapshot) StatsResponse {
	if snapshot == nil {
		return StatsResponse{}
	}
	silos := make([]SiloStats, 0, len(snapshot.Silos))
	for _, silo := range snapshot.Silos {
		silos = append(silos, SiloStats{
			SiloName:   silo.SiloName,
			Total:      silo.Total,
			Published:  silo.Published,
			Queued:     silo.Queued,
			InProgress: silo.InProgress,
			Failed:     silo.Failed,
		})
	}
	activity := make([]ActivityEntry, 0, len(snapshot.Activity))
	for _, entry := range snapshot.Activity {
		activity = append(activity, ActivityEntry{
			ItemID:    entry.ItemID,
			Timestamp: entry.Timestamp.UTC().Format(dateTimeFormat),
			Title:     entry.Title,
			SiloName:  entry.SiloName,
			Status:    string(entry.Status),
			Kind:      string(entry.Kind),
			Message:   entry.Message,
		})
	}
	return StatsResponse{
		Totals: map[string]int{
			"total":      snapshot.Totals.Total,
			"queued":     snapshot.Totals.Queued,
			"paused":     snapshot.Totals.Paused,
			"processing": snapshot.Totals.Processing,
			"enriching":  snapshot.Totals.Enriching,
			"inProgress": snapshot.Totals.InProgress,
			"published":  snapshot.Totals.Published,
			"failed":     snapshot.Totals.Failed,
		},
		SiloStats:       silos,
		ActiveItems:     FromQueueItems(snapshot.ActiveItems),
		NextUp:          FromQueueItems(snapshot.NextUp),
		RecentPublished: FromQueueItems(snapshot.RecentPublished),
		FailedItems:     FromQueueItems(snapshot.RecentFailed),
		ActivityLog:     activity,
		EngineRunning:   snapshot.EngineRunning,
	}
}

// FromCycleResult converts an engine cycle outcome.
func FromCycleResult(result *engine.CycleResult) CycleResponse {
	if result == nil {
		return CycleResponse{}
	}
	resp := CycleResponse{
		Success:         result.Outcome != engine.OutcomeFailed,
		Processed:       result.Outcome == engine.OutcomePublished || result.Outcome == engine.OutcomeFailed,
		Outcome:         string(result.Outcome),
		ArtifactURL:     result.ArtifactURL,
		PipelineRunID:   result.PipelineRunID,
		Quality:         result.QualityScore,
		DurationSeconds: result.Duration.Seconds(),
		Error:           result.ErrorMessage,
	}
	if result.Item != nil {
		item := FromQueueItem(result.Item)
		resp.Item = &item
	}
	return resp
}

// FromDispatch converts a persisted dispatch record.
func FromDispatch(d *queue.Dispatch) DispatchEntry {
	if d == nil {
		return DispatchEntry{}
	}
	entry := DispatchEntry{
		ID:        d.ID,
		Kind:      d.Kind,
		Status:    d.Status,
		Attempts:  d.Attempts,
		LastError: d.LastError,
	}
	if !d.CreatedAt.IsZero() {
		entry.CreatedAt = d.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !d.UpdatedAt.IsZero() {
		entry.UpdatedAt = d.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return entry
}

// FromDispatches converts a slice of dispatch records.
func FromDispatches(dispatches []*queue.Dispatch) []DispatchEntry {
	out := make([]DispatchEntry, 0, len(dispatches))
	for _, d := range dispatches {
		out = append(out, FromDispatch(d))
	}
	return out
}

func formatTimePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
