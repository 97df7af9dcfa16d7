package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loom/internal/api"
	"loom/internal/client"
)

func TestClientSendsBearerTokenAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, PID: 7})
	}))
	defer server.Close()

	c := client.NewWithBaseURL(server.URL, "sekrit")
	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotPath != "/api/status" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !status.Running || status.PID != 7 {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestClientSurfacesDaemonErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown status \"bogus\""})
	}))
	defer server.Close()

	c := client.NewWithBaseURL(server.URL, "")
	_, err := c.ListQueue(context.Background(), "bogus")
	if err == nil || !strings.Contains(err.Error(), `unknown status "bogus"`) {
		t.Fatalf("expected daemon error surfaced, got %v", err)
	}
}

func TestClientStatusFilterQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(api.QueueListResponse{})
	}))
	defer server.Close()

	c := client.NewWithBaseURL(server.URL, "")
	if _, err := c.ListQueue(context.Background(), "queued", "failed"); err != nil {
		t.Fatalf("ListQueue failed: %v", err)
	}
	if gotQuery != "status=queued&status=failed" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestClientConnectionRefusedHint(t *testing.T) {
	c := client.NewWithBaseURL("http://127.0.0.1:1", "")
	_, err := c.Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "start the daemon") {
		t.Fatalf("expected daemon hint, got %v", err)
	}
}
