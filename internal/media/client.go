package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loom/internal/config"
	"loom/internal/services"
)

const (
	generateMediaPath    = "/api/pipeline/generate-media"
	defaultEnrichTimeout = 5 * time.Minute
	defaultStyle         = "people-focused"
)

// Client talks to the media generation service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a media client from configuration.
func NewClient(cfg config.Media, opts ...Option) *Client {
	timeout := defaultEnrichTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type generateMediaRequest struct {
	Article     string   `json:"article"`
	Title       string   `json:"title"`
	Keywords    []string `json:"keywords"`
	Category    string   `json:"category"`
	Style       string   `json:"style"`
	PipelineID  string   `json:"pipelineId"`
	ArticleSlug string   `json:"articleSlug"`
	ArticleID   string   `json:"articleId"`
	QueueItemID int64    `json:"queueItemId"`
}

type generateMediaResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Video   json.RawMessage `json:"video"`
	Images  []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Enrich submits the artifact to the media service and blocks until the
// service reports an outcome.
func (c *Client) Enrich(ctx context.Context, req Request) (*Result, error) {
	if c.baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "media", "enrich", "base url not configured", nil)
	}

	payload := generateMediaRequest{
		Article:     req.Content,
		Title:       req.Title,
		Keywords:    req.Keywords,
		Category:    req.Category,
		Style:       defaultStyle,
		PipelineID:  req.PipelineRunID,
		ArticleSlug: req.ArticleSlug,
		ArticleID:   req.ArtifactID,
		QueueItemID: req.QueueItemID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "media", "enrich", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generateMediaPath, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "media", "enrich", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "media", "enrich", "media service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "media", "enrich", "read response", err)
	}

	var decoded generateMediaResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "media", "enrich",
			fmt.Sprintf("http %d: unexpected response", resp.StatusCode), nil)
	}
	if !decoded.Success {
		reason := strings.TrimSpace(decoded.Error)
		if reason == "" {
			reason = fmt.Sprintf("media generation failed (http %d)", resp.StatusCode)
		}
		return nil, services.Wrap(services.ErrExternalService, "media", "enrich", reason, nil)
	}

	return &Result{
		VideoGenerated: len(decoded.Video) > 0 && string(decoded.Video) != "null" && string(decoded.Video) != "false",
		ImageCount:     len(decoded.Images),
	}, nil
}
