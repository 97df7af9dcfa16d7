package pipeline

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
	orchestratePath    = "/api/pipeline/orchestrate"
	defaultRunTimeout  = 15 * time.Minute
	maxErrorBodyLength = 2048
)

// Client talks to the pipeline orchestrator over HTTP.
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

// NewClient constructs a pipeline client from configuration.
func NewClient(cfg config.Pipeline, opts ...Option) *Client {
	timeout := defaultRunTimeout
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

type orchestrateRequest struct {
	Brief        string `json:"brief"`
	AutoPublish  bool   `json:"autoPublish"`
	ForcePublish bool   `json:"forcePublish"`
	QueueItemID  int64  `json:"queueItemId"`
	Topic        string `json:"topic"`
	FocusKeyword string `json:"focusKeyword"`
	SiloTopic    string `json:"siloTopic"`
	SiloID       string `json:"siloId"`
	Slug         string `json:"slug"`
	Level        string `json:"level"`
}

type orchestrateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Article struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Slug    string `json:"slug"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"article"`
	OptimizedArticle string `json:"optimizedArticle"`
	Quality          struct {
		Score float64 `json:"score"`
	} `json:"quality"`
	PipelineID    string  `json:"pipelineId"`
	TotalDuration float64 `json:"totalDuration"`
}

// Run submits the brief to the orchestrator and blocks until the pipeline
// reports success or failure.
func (c *Client) Run(ctx context.Context, req Request) (*Result, error) {
	if c.baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run", "base url not configured", nil)
	}

	payload := orchestrateRequest{
		Brief:        req.Brief.Text,
		AutoPublish:  true,
		ForcePublish: req.ForcePublish,
		QueueItemID:  req.QueueItemID,
		Topic:        req.Brief.Hints.Topic,
		FocusKeyword: req.Brief.Hints.PrimaryKeyword,
		SiloTopic:    req.Brief.Hints.SiloTopic,
		SiloID:       req.Brief.Hints.SiloID,
		Slug:         req.Brief.Hints.Slug,
		Level:        req.Brief.Hints.Level,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+orchestratePath, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "pipeline", "run", "orchestrator call aborted", err)
		}
		return nil, services.Wrap(services.ErrExternalService, "pipeline", "run", "orchestrator unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "pipeline", "run", "read response", err)
	}

	var decoded orchestrateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "pipeline", "run",
			fmt.Sprintf("http %d: %s", resp.StatusCode, truncateBody(raw)), nil)
	}
	if !decoded.Success {
		reason := strings.TrimSpace(decoded.Error)
		if reason == "" {
			reason = fmt.Sprintf("orchestrator failed (http %d)", resp.StatusCode)
		}
		return nil, &RunError{
			Reason: reason,
			Err:    services.Wrap(services.ErrExternalService, "pipeline", "run", reason, nil),
		}
	}

	content := decoded.OptimizedArticle
	if content == "" {
		content = decoded.Article.Content
	}
	result := &Result{
		Artifact: Artifact{
			ID:      decoded.Article.ID,
			Title:   decoded.Article.Title,
			Slug:    decoded.Article.Slug,
			URL:     decoded.Article.URL,
			Content: content,
		},
		QualityScore:  decoded.Quality.Score,
		PipelineRunID: decoded.PipelineID,
		Duration:      time.Duration(decoded.TotalDuration * float64(time.Second)),
	}
	if result.Artifact.ID == "" {
		return nil, services.Wrap(services.ErrExternalService, "pipeline", "run", "orchestrator returned no artifact", nil)
	}
	return result, nil
}

func truncateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength] + "..."
	}
	return body
}
