package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetAutoRun persists the engine's auto-processing flag. The control row is
// the authoritative source; an instance-local boolean is not trusted once
// multiple instances can serve requests.
func (s *Store) SetAutoRun(ctx context.Context, enabled bool) error {
	value := 0
	if enabled {
		value = 1
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO engine_control (id, auto_run, updated_at) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET auto_run = excluded.auto_run, updated_at = excluded.updated_at`,
		value,
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set auto run: %w", err)
	}
	return nil
}

// AutoRun reports the persisted auto-processing flag.
func (s *Store) AutoRun(ctx context.Context) (bool, error) {
	var value int
	row := s.db.QueryRowContext(ctx, `SELECT auto_run FROM engine_control WHERE id = 1`)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read auto run: %w", err)
	}
	return value != 0, nil
}
