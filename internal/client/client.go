// Package client is the HTTP client for the loom daemon API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"loom/internal/api"
	"loom/internal/config"
)

// Client talks to a running loom daemon.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a client against the configured API bind address.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:    "http://" + strings.TrimSpace(cfg.Paths.APIBind),
		token:      strings.TrimSpace(cfg.Paths.APIToken),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithBaseURL constructs a client against an explicit URL (used in tests).
func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithTimeout overrides the request timeout, returning the client for
// chaining. Process calls block for a full pipeline run and need far more
// than the default.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var out api.DaemonStatus
	if err := c.get(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches the dashboard snapshot.
func (c *Client) Stats(ctx context.Context) (*api.StatsResponse, error) {
	var out api.StatsResponse
	if err := c.get(ctx, "/api/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListQueue fetches queue items, optionally filtered by status.
func (c *Client) ListQueue(ctx context.Context, statuses ...string) ([]api.QueueItem, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		params := make([]string, 0, len(statuses))
		for _, status := range statuses {
			params = append(params, "status="+status)
		}
		path += "?" + strings.Join(params, "&")
	}
	var out api.QueueListResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Describe fetches a single queue item.
func (c *Client) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	var out api.QueueItemResponse
	if err := c.get(ctx, fmt.Sprintf("/api/queue/%d", id), &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// AddItem enqueues a new queue item.
func (c *Client) AddItem(ctx context.Context, req api.AddItemRequest) (*api.QueueItem, error) {
	var out api.QueueItemResponse
	if err := c.post(ctx, "/api/queue", req, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// Apply runs an operator action (pause, resume, retry, skip, reset) on an
// item.
func (c *Client) Apply(ctx context.Context, id int64, action string) (*api.ActionResponse, error) {
	var out api.ActionResponse
	if err := c.post(ctx, fmt.Sprintf("/api/queue/%d/%s", id, action), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EngineStart enables the auto-run chain.
func (c *Client) EngineStart(ctx context.Context) (*api.EngineStateResponse, error) {
	var out api.EngineStateResponse
	if err := c.post(ctx, "/api/engine/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EngineStop disables the auto-run chain after the current cycle.
func (c *Client) EngineStop(ctx context.Context) (*api.EngineStateResponse, error) {
	var out api.EngineStateResponse
	if err := c.post(ctx, "/api/engine/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessNext runs one cycle against the highest priority queued item and
// blocks until it finishes.
func (c *Client) ProcessNext(ctx context.Context) (*api.CycleResponse, error) {
	var out api.CycleResponse
	if err := c.post(ctx, "/api/engine/process", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessItem runs one cycle against an explicit item.
func (c *Client) ProcessItem(ctx context.Context, id int64) (*api.CycleResponse, error) {
	var out api.CycleResponse
	if err := c.post(ctx, fmt.Sprintf("/api/queue/%d/process", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeadDispatches lists dead-lettered continuation dispatches.
func (c *Client) DeadDispatches(ctx context.Context) ([]api.DispatchEntry, error) {
	var out api.DispatchListResponse
	if err := c.get(ctx, "/api/dispatches/dead", &out); err != nil {
		return nil, err
	}
	return out.Dispatches, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapDialError(err error, baseURL string) error {
	var netErr *net.OpError
	if errors.As(err, &netErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: %w; start the daemon with `loomd`", baseURL, err)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
