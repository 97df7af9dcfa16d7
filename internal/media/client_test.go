package media_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loom/internal/config"
	"loom/internal/media"
	"loom/internal/services"
)

func sampleRequest() media.Request {
	return media.Request{
		ArtifactID:    "art-1",
		ArticleSlug:   "negotiate-bpo-salary",
		Title:         "How to negotiate a BPO salary",
		Content:       "full article body",
		Keywords:      []string{"bpo salary"},
		Category:      "Careers",
		PipelineRunID: "run-42",
		QueueItemID:   3,
	}
}

func TestEnrichSuccess(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pipeline/generate-media" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"video":   map[string]any{"url": "https://cdn/video.mp4"},
			"images":  []map[string]any{{"url": "a.png"}, {"url": "b.png"}, {"url": "c.png"}},
		})
	}))
	defer server.Close()

	client := media.NewClient(config.Media{BaseURL: server.URL})
	result, err := client.Enrich(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !result.VideoGenerated || result.ImageCount != 3 {
		t.Fatalf("unexpected result: %#v", result)
	}

	if captured["articleId"] != "art-1" || captured["pipelineId"] != "run-42" {
		t.Fatalf("expected artifact linkage forwarded: %#v", captured)
	}
	if captured["article"] != "full article body" {
		t.Fatalf("expected article content forwarded: %#v", captured)
	}
}

func TestEnrichReportsServiceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "veo quota exhausted"})
	}))
	defer server.Close()

	client := media.NewClient(config.Media{BaseURL: server.URL})
	_, err := client.Enrich(context.Background(), sampleRequest())
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker: %v", err)
	}
	if !strings.Contains(err.Error(), "veo quota exhausted") {
		t.Fatalf("expected service reason in error: %v", err)
	}
}

func TestEnrichRequiresBaseURL(t *testing.T) {
	client := media.NewClient(config.Media{})
	_, err := client.Enrich(context.Background(), sampleRequest())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
