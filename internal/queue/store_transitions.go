package queue

import (
	"context"
	"fmt"
	"time"
)

// Claim conditionally transitions an item from queued to processing. The
// update is a single compare-and-set; false means another cycle already
// claimed the item (or it is no longer queued) and the caller should abort
// without error.
func (s *Store) Claim(ctx context.Context, id int64, stage string) (bool, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, stage = ?, started_at = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessing,
		nullableString(stage),
		now,
		now,
		id,
		StatusQueued,
	)
	if err != nil {
		return false, fmt.Errorf("claim item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return affected > 0, nil
}

// Advance records a coarse progress label on a non-terminal item. It never
// gates control flow; failures only degrade dashboard detail.
func (s *Store) Advance(ctx context.Context, id int64, stage string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET stage = ?, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		nullableString(stage),
		timestamp(time.Now()),
		id,
		StatusPublished,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("advance item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("advance item %d: not found or terminal", id)
	}
	return nil
}

// Fail marks the item failed, stores a bounded error message, and increments
// the retry count.
func (s *Store) Fail(ctx context.Context, id int64, message string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, stage = ?, error_message = ?, retry_count = retry_count + 1, updated_at = ?
         WHERE id = ?`,
		StatusFailed,
		StatusFailed,
		nullableString(TruncateError(message)),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("fail item: %w", err)
	}
	return nil
}

// MarkEnriching records the pipeline output and moves the item into the
// enrichment stage.
func (s *Store) MarkEnriching(ctx context.Context, id int64, artifactID, pipelineRunID string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, stage = ?, artifact_id = ?, pipeline_run_id = ?, updated_at = ?
         WHERE id = ?`,
		StatusEnriching,
		StatusEnriching,
		nullableString(artifactID),
		nullableString(pipelineRunID),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark enriching: %w", err)
	}
	return nil
}

// Publish marks the item as the terminal success state and stamps completion.
func (s *Store) Publish(ctx context.Context, id int64) error {
	now := timestamp(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, stage = ?, completed_at = ?, updated_at = ?
         WHERE id = ?`,
		StatusPublished,
		StatusPublished,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("publish item: %w", err)
	}
	return nil
}

// Pause moves a queued item to paused. Returns false when the item was not
// queued.
func (s *Store) Pause(ctx context.Context, id int64) (bool, error) {
	return s.conditionalStatusUpdate(ctx, id, StatusQueued, StatusPaused, "pause item")
}

// Resume moves a paused item back to queued.
func (s *Store) Resume(ctx context.Context, id int64) (bool, error) {
	return s.conditionalStatusUpdate(ctx, id, StatusPaused, StatusQueued, "resume item")
}

// Retry moves a failed item back to queued, clearing the error message and
// retry count.
func (s *Store) Retry(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, stage = NULL, error_message = NULL, retry_count = 0, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusQueued,
		timestamp(time.Now()),
		id,
		StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("retry item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("retry rows affected: %w", err)
	}
	return affected > 0, nil
}

// Skip pauses a queued item with an explanatory message so operators can see
// why it was set aside.
func (s *Store) Skip(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPaused,
		SkipReason,
		timestamp(time.Now()),
		id,
		StatusQueued,
	)
	if err != nil {
		return false, fmt.Errorf("skip item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("skip rows affected: %w", err)
	}
	return affected > 0, nil
}

// Reset returns an item to queued from any state, clearing every progress
// field. Idempotent by design; it is the recovery path for items stranded in
// a non-terminal status by a truncated cycle.
func (s *Store) Reset(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, stage = NULL, error_message = NULL, retry_count = 0,
             started_at = NULL, completed_at = NULL, pipeline_run_id = NULL,
             artifact_id = NULL, updated_at = ?
         WHERE id = ?`,
		StatusQueued,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("reset item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) conditionalStatusUpdate(ctx context.Context, id int64, from, to Status, op string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		timestamp(time.Now()),
		id,
		from,
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return affected > 0, nil
}
