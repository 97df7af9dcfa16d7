package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnqueueDispatch persists a request to run another processing cycle.
func (s *Store) EnqueueDispatch(ctx context.Context, kind string) (int64, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO dispatches (kind, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		kind,
		DispatchPending,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue dispatch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("dispatch insert id: %w", err)
	}
	return id, nil
}

// NextPendingDispatch returns the oldest pending dispatch, or nil.
func (s *Store) NextPendingDispatch(ctx context.Context) (*Dispatch, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+dispatchColumns+` FROM dispatches WHERE status = ? ORDER BY id ASC LIMIT 1`,
		DispatchPending,
	)
	dispatch, err := scanDispatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending dispatch: %w", err)
	}
	return dispatch, nil
}

// CompleteDispatch marks a dispatch as consumed.
func (s *Store) CompleteDispatch(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE dispatches SET status = ?, updated_at = ? WHERE id = ?`,
		DispatchDone,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete dispatch: %w", err)
	}
	return nil
}

// FailDispatch records a dispatch failure. Once attempts reach maxAttempts
// the dispatch is dead-lettered and the worker stops retrying it.
func (s *Store) FailDispatch(ctx context.Context, id int64, message string, maxAttempts int) error {
	now := timestamp(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE dispatches
         SET attempts = attempts + 1,
             last_error = ?,
             status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END,
             updated_at = ?
         WHERE id = ?`,
		nullableString(TruncateError(message)),
		maxAttempts,
		DispatchDead,
		DispatchPending,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("fail dispatch: %w", err)
	}
	return nil
}

// DeadLetterDispatches lists dispatches that exhausted their attempts.
func (s *Store) DeadLetterDispatches(ctx context.Context) ([]*Dispatch, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+dispatchColumns+` FROM dispatches WHERE status = ? ORDER BY id ASC`,
		DispatchDead,
	)
	if err != nil {
		return nil, fmt.Errorf("dead letter dispatches: %w", err)
	}
	defer rows.Close()

	var dispatches []*Dispatch
	for rows.Next() {
		dispatch, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		dispatches = append(dispatches, dispatch)
	}
	return dispatches, rows.Err()
}

// ClearConsumedDispatches removes done dispatches older than the cutoff.
func (s *Store) ClearConsumedDispatches(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM dispatches WHERE status = ? AND updated_at < ?`,
		DispatchDone,
		timestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("clear consumed dispatches: %w", err)
	}
	return res.RowsAffected()
}

const dispatchColumns = "id, kind, status, attempts, last_error, created_at, updated_at"

func scanDispatch(scanner interface{ Scan(dest ...any) error }) (*Dispatch, error) {
	var (
		id         int64
		kind       string
		status     string
		attempts   int
		lastError  sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &kind, &status, &attempts, &lastError, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	dispatch := &Dispatch{
		ID:        id,
		Kind:      kind,
		Status:    status,
		Attempts:  attempts,
		LastError: lastError.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		dispatch.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		dispatch.UpdatedAt = updated
	}
	return dispatch, nil
}
