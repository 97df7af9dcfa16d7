package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	SiloID         string   `json:"siloId,omitempty"`
	SiloName       string   `json:"siloName,omitempty"`
	ClusterName    string   `json:"clusterName,omitempty"`
	Level          string   `json:"level"`
	TargetKeywords []string `json:"targetKeywords,omitempty"`
	ContentSummary string   `json:"contentSummary,omitempty"`
	Priority       int      `json:"priority"`
	Status         string   `json:"status"`
	Stage          string   `json:"stage,omitempty"`
	RetryCount     int      `json:"retryCount"`
	ErrorMessage   string   `json:"errorMessage,omitempty"`
	StartedAt      string   `json:"startedAt,omitempty"`
	CompletedAt    string   `json:"completedAt,omitempty"`
	PipelineRunID  string   `json:"pipelineRunId,omitempty"`
	ArtifactID     string   `json:"artifactId,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

// SiloStats aggregates per-silo counts for the dashboard.
type SiloStats struct {
	SiloName   string `json:"siloName"`
	Total      int    `json:"total"`
	Published  int    `json:"published"`
	Queued     int    `json:"queued"`
	InProgress int    `json:"inProgress"`
	Failed     int    `json:"failed"`
}

// ActivityEntry is one line of the dashboard activity log.
type ActivityEntry struct {
	ItemID    int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Title     string `json:"articleTitle"`
	SiloName  string `json:"siloName"`
	Status    string `json:"stage"`
	Kind      string `json:"type"`
	Message   string `json:"message"`
}

// StatsResponse is the full dashboard payload served by /api/stats.
type StatsResponse struct {
	Totals          map[string]int  `json:"stats"`
	SiloStats       []SiloStats     `json:"siloStats"`
	ActiveItems     []QueueItem     `json:"activeItems"`
	NextUp          []QueueItem     `json:"nextUp"`
	RecentPublished []QueueItem     `json:"recentPublished"`
	FailedItems     []QueueItem     `json:"failedItems"`
	ActivityLog     []ActivityEntry `json:"activityLog"`
	EngineRunning   bool            `json:"engineRunning"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	EngineRunning  bool   `json:"engineRunning"`
	QueueDBPath    string `json:"queueDbPath"`
	LockFilePath   string `json:"lockFilePath"`
	QueuedItems    int    `json:"queuedItems"`
	DeadDispatches int    `json:"deadDispatches"`
}

// QueueListResponse wraps a collection of queue items.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// AddItemRequest is the payload for enqueueing a new item.
type AddItemRequest struct {
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	SiloID         string   `json:"siloId"`
	SiloName       string   `json:"siloName"`
	ClusterName    string   `json:"clusterName"`
	Level          string   `json:"level"`
	TargetKeywords []string `json:"targetKeywords"`
	ContentSummary string   `json:"contentSummary"`
	Priority       int      `json:"priority"`
}

// EngineStateResponse reports the persisted auto-run flag after a control
// action.
type EngineStateResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	EngineRunning bool   `json:"engineRunning"`
}

// CycleResponse reports the outcome of a directly requested processing cycle.
type CycleResponse struct {
	Success         bool       `json:"success"`
	Processed       bool       `json:"processed"`
	Outcome         string     `json:"outcome"`
	Item            *QueueItem `json:"queueItem,omitempty"`
	ArtifactURL     string     `json:"artifactUrl,omitempty"`
	PipelineRunID   string     `json:"pipelineId,omitempty"`
	Quality         float64    `json:"quality,omitempty"`
	DurationSeconds float64    `json:"totalDuration,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// ActionResponse reports the result of an operator queue action.
type ActionResponse struct {
	Success bool       `json:"success"`
	Applied bool       `json:"applied"`
	Item    *QueueItem `json:"item,omitempty"`
}

// DispatchEntry describes a dead-lettered continuation dispatch.
type DispatchEntry struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// DispatchListResponse wraps dead-letter dispatches.
type DispatchListResponse struct {
	Dispatches []DispatchEntry `json:"dispatches"`
}
