package queue

import (
	"context"
	"fmt"
)

// SiloStats aggregates item counts for one silo.
type SiloStats struct {
	SiloName   string
	Total      int
	Published  int
	Queued     int
	InProgress int
	Failed     int
}

// CountsByStatus returns a count of items grouped by status.
func (s *Store) CountsByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// SiloBreakdown aggregates per-silo counts. Paused items count as queued for
// the breakdown, matching the dashboard's "waiting" bucket.
func (s *Store) SiloBreakdown(ctx context.Context) ([]SiloStats, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT COALESCE(silo_name, ''), status, COUNT(1)
         FROM queue_items GROUP BY silo_name, status ORDER BY silo_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("silo breakdown: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*SiloStats)
	var order []string
	for rows.Next() {
		var name string
		var status Status
		var count int
		if err := rows.Scan(&name, &status, &count); err != nil {
			return nil, err
		}
		stats, ok := byName[name]
		if !ok {
			stats = &SiloStats{SiloName: name}
			byName[name] = stats
			order = append(order, name)
		}
		stats.Total += count
		switch status {
		case StatusPublished:
			stats.Published += count
		case StatusQueued, StatusPaused:
			stats.Queued += count
		case StatusFailed:
			stats.Failed += count
		default:
			stats.InProgress += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]SiloStats, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

// ActiveItems returns in-flight and recently failed items ordered by most
// recent update.
func (s *Store) ActiveItems(ctx context.Context, limit int) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items
         WHERE status NOT IN (?, ?, ?)
         ORDER BY updated_at DESC LIMIT ?`,
		StatusQueued,
		StatusPaused,
		StatusPublished,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("active items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// NextUp returns the top queued items in selection order.
func (s *Store) NextUp(ctx context.Context, limit int) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ?
         ORDER BY priority DESC, created_at ASC, id ASC LIMIT ?`,
		StatusQueued,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("next up: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// RecentPublished returns the most recently completed items.
func (s *Store) RecentPublished(ctx context.Context, limit int) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ?
         ORDER BY completed_at DESC LIMIT ?`,
		StatusPublished,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent published: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// RecentFailed returns the most recently failed items.
func (s *Store) RecentFailed(ctx context.Context, limit int) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ?
         ORDER BY updated_at DESC LIMIT ?`,
		StatusFailed,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent failed: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}
