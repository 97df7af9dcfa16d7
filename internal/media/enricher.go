// Package media drives the external enrichment stage that attaches video and
// imagery to a published artifact. Enrichment is optional: callers treat every
// outcome, including transport failures, as non-fatal.
package media

import "context"

// Request carries the finalized artifact content and metadata for enrichment.
type Request struct {
	ArtifactID    string
	ArticleSlug   string
	Title         string
	Content       string
	Keywords      []string
	Category      string
	PipelineRunID string
	QueueItemID   int64
}

// Result reports what the enrichment stage produced.
type Result struct {
	VideoGenerated bool
	ImageCount     int
}

// Enricher abstracts the enrichment transport so the engine can be exercised
// without a live media service.
type Enricher interface {
	Enrich(ctx context.Context, req Request) (*Result, error)
}
