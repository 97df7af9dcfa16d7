package queue

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusPaused     Status = "paused"
	StatusProcessing Status = "processing"
	StatusEnriching  Status = "enriching"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// ErrorMessageLimit bounds the persisted error message length.
const ErrorMessageLimit = 500

// SkipReason is the error message recorded when an operator skips an item.
const SkipReason = "Skipped by operator"

var allStatuses = []Status{
	StatusQueued,
	StatusPaused,
	StatusProcessing,
	StatusEnriching,
	StatusPublished,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Level classifies an article's place in its silo.
type Level string

const (
	LevelPillar     Level = "pillar"
	LevelSupporting Level = "supporting"
)

// Item represents a content-production queue item persisted in SQLite.
type Item struct {
	ID             int64
	Title          string
	Slug           string
	SiloID         string
	SiloName       string
	ClusterName    string
	Level          Level
	TargetKeywords []string
	ContentSummary string
	Priority       int
	Status         Status
	Stage          string
	RetryCount     int
	ErrorMessage   string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	PipelineRunID  string
	ArtifactID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseLevel converts a string into a known Level, defaulting to supporting.
func ParseLevel(value string) Level {
	if strings.EqualFold(strings.TrimSpace(value), string(LevelPillar)) {
		return LevelPillar
	}
	return LevelSupporting
}

// IsInProgress reports whether the item is mid-cycle.
func (i Item) IsInProgress() bool {
	return i.Status == StatusProcessing || i.Status == StatusEnriching
}

// IsTerminal reports whether the item has reached its success state.
func (i Item) IsTerminal() bool {
	return i.Status == StatusPublished
}

// PrimaryKeyword returns the first target keyword, falling back to the title.
func (i Item) PrimaryKeyword() string {
	for _, kw := range i.TargetKeywords {
		if trimmed := strings.TrimSpace(kw); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(i.Title)
}

// TruncateError bounds an error message to the persisted limit, cutting on a
// rune boundary so the stored message stays valid UTF-8.
func TruncateError(message string) string {
	message = strings.TrimSpace(message)
	if len(message) <= ErrorMessageLimit {
		return message
	}
	cut := ErrorMessageLimit
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

// Dispatch statuses for the durable continuation queue.
const (
	DispatchPending = "pending"
	DispatchDone    = "done"
	DispatchDead    = "dead"
)

// Dispatch kinds.
const (
	DispatchKindCycle = "cycle"
)

// Dispatch is one persisted request to run a processing cycle.
type Dispatch struct {
	ID        int64
	Kind      string
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
