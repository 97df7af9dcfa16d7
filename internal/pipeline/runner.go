// Package pipeline drives the external multi-stage content pipeline for one
// queue item at a time. A run blocks for the pipeline's full duration, which
// can be minutes.
package pipeline

import (
	"context"
	"errors"
	"time"

	"loom/internal/brief"
)

// Request is the full pipeline input for one queue item.
type Request struct {
	Brief        brief.Brief
	ForcePublish bool
	QueueItemID  int64
}

// Artifact describes the published output of a successful run.
type Artifact struct {
	ID      string
	Title   string
	Slug    string
	URL     string
	Content string
}

// Result captures a successful pipeline run. There is no partial-completion
// state: either a full artifact is produced or the run errors.
type Result struct {
	Artifact      Artifact
	QualityScore  float64
	PipelineRunID string
	Duration      time.Duration
}

// Runner abstracts the pipeline transport so the engine can be exercised
// without a live orchestrator.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// RunError is returned when the orchestrator reports a failure. Reason holds
// the orchestrator's own message so callers can persist it verbatim; the
// wrapped error carries the tagged chain for classification.
type RunError struct {
	Reason string
	Err    error
}

func (e *RunError) Error() string { return e.Err.Error() }

func (e *RunError) Unwrap() error { return e.Err }

// FailureReason returns the orchestrator-reported reason when err carries
// one, falling back to the full error text.
func FailureReason(err error) string {
	var runErr *RunError
	if errors.As(err, &runErr) && runErr.Reason != "" {
		return runErr.Reason
	}
	return err.Error()
}
