package api

import (
	"context"

	"loom/internal/queue"
)

// QueueStore abstracts the queue persistence operations the API layer needs.
type QueueStore interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	Enqueue(ctx context.Context, params queue.NewItemParams) (*queue.Item, error)
	Pause(ctx context.Context, id int64) (bool, error)
	Resume(ctx context.Context, id int64) (bool, error)
	Retry(ctx context.Context, id int64) (bool, error)
	Skip(ctx context.Context, id int64) (bool, error)
	Reset(ctx context.Context, id int64) (bool, error)
}

// QueueService exposes queue operations returning API DTOs.
type QueueService struct {
	store QueueStore
}

// NewQueueService constructs a QueueService around the provided store.
func NewQueueService(store QueueStore) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns queue items filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromQueueItems(items), nil
}

// Describe fetches a single queue item. A nil result means not found.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// Add enqueues a new item from the transport payload.
func (s *QueueService) Add(ctx context.Context, req AddItemRequest) (*QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.Enqueue(ctx, queue.NewItemParams{
		Title:          req.Title,
		Slug:           req.Slug,
		SiloID:         req.SiloID,
		SiloName:       req.SiloName,
		ClusterName:    req.ClusterName,
		Level:          queue.ParseLevel(req.Level),
		TargetKeywords: req.TargetKeywords,
		ContentSummary: req.ContentSummary,
		Priority:       req.Priority,
	})
	if err != nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// Apply runs one operator action against an item and reports whether the
// conditional transition fired, along with the item's current state.
func (s *QueueService) Apply(ctx context.Context, id int64, action string) (ActionResponse, bool, error) {
	if s == nil || s.store == nil {
		return ActionResponse{}, false, nil
	}
	var (
		applied bool
		err     error
		known   = true
	)
	switch action {
	case "pause":
		applied, err = s.store.Pause(ctx, id)
	case "resume":
		applied, err = s.store.Resume(ctx, id)
	case "retry":
		applied, err = s.store.Retry(ctx, id)
	case "skip":
		applied, err = s.store.Skip(ctx, id)
	case "reset":
		applied, err = s.store.Reset(ctx, id)
	default:
		known = false
	}
	if !known || err != nil {
		return ActionResponse{}, known, err
	}

	resp := ActionResponse{Success: true, Applied: applied}
	if item, getErr := s.store.GetByID(ctx, id); getErr == nil && item != nil {
		dto := FromQueueItem(item)
		resp.Item = &dto
	}
	return resp, true, nil
}
