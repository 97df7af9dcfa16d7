package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewItemParams carries the externally-supplied fields for a new queue item.
type NewItemParams struct {
	Title          string
	Slug           string
	SiloID         string
	SiloName       string
	ClusterName    string
	Level          Level
	TargetKeywords []string
	ContentSummary string
	Priority       int
}

// Enqueue inserts a new item with status queued.
func (s *Store) Enqueue(ctx context.Context, params NewItemParams) (*Item, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	slug := strings.TrimSpace(params.Slug)
	if slug == "" {
		return nil, errors.New("slug is required")
	}
	level := params.Level
	if level == "" {
		level = LevelSupporting
	}

	keywordsJSON, err := marshalKeywords(params.TargetKeywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}

	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            title, slug, silo_id, silo_name, cluster_name, level,
            target_keywords, content_summary, priority, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		title,
		slug,
		nullableString(strings.TrimSpace(params.SiloID)),
		nullableString(strings.TrimSpace(params.SiloName)),
		nullableString(strings.TrimSpace(params.ClusterName)),
		level,
		nullableString(keywordsJSON),
		nullableString(strings.TrimSpace(params.ContentSummary)),
		params.Priority,
		StatusQueued,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. Returns nil when not found.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// NextQueued returns the queued item with the highest priority, oldest first
// on ties. Returns nil when nothing is queued.
func (s *Store) NextQueued(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ?
         ORDER BY priority DESC, created_at ASC, id ASC LIMIT 1`,
		StatusQueued,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next queued: %w", err)
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY priority DESC, created_at ASC, id ASC`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// CountByStatus returns the number of items with the given status.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue_items WHERE status = ?`, status)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const itemColumns = "id, title, slug, silo_id, silo_name, cluster_name, level, target_keywords, content_summary, priority, status, stage, retry_count, error_message, started_at, completed_at, pipeline_run_id, artifact_id, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            int64
		title         string
		slug          string
		siloID        sql.NullString
		siloName      sql.NullString
		clusterName   sql.NullString
		levelStr      string
		keywordsRaw   sql.NullString
		summary       sql.NullString
		priority      int
		statusStr     string
		stage         sql.NullString
		retryCount    int
		errorMessage  sql.NullString
		startedRaw    sql.NullString
		completedRaw  sql.NullString
		pipelineRunID sql.NullString
		artifactID    sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&slug,
		&siloID,
		&siloName,
		&clusterName,
		&levelStr,
		&keywordsRaw,
		&summary,
		&priority,
		&statusStr,
		&stage,
		&retryCount,
		&errorMessage,
		&startedRaw,
		&completedRaw,
		&pipelineRunID,
		&artifactID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:             id,
		Title:          title,
		Slug:           slug,
		SiloID:         siloID.String,
		SiloName:       siloName.String,
		ClusterName:    clusterName.String,
		Level:          Level(levelStr),
		ContentSummary: summary.String,
		Priority:       priority,
		Status:         Status(statusStr),
		Stage:          stage.String,
		RetryCount:     retryCount,
		ErrorMessage:   errorMessage.String,
		PipelineRunID:  pipelineRunID.String,
		ArtifactID:     artifactID.String,
	}

	if keywordsRaw.Valid {
		keywords, err := unmarshalKeywords(keywordsRaw.String)
		if err != nil {
			return nil, fmt.Errorf("decode keywords for item %d: %w", id, err)
		}
		item.TargetKeywords = keywords
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			item.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}
	return item, nil
}

func marshalKeywords(keywords []string) (string, error) {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if trimmed := strings.TrimSpace(kw); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return "", nil
	}
	data, err := json.Marshal(cleaned)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalKeywords(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, err
	}
	return keywords, nil
}
