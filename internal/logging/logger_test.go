package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandlerPullsComponentForward(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl)).With(String(FieldComponent, "engine"))

	logger.Info("cycle complete", Int64(FieldItemID, 7), String("status", "published"))

	line := buf.String()
	if !strings.Contains(line, "INFO engine: cycle complete") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "item_id=7") || !strings.Contains(line, "status=published") {
		t.Fatalf("expected attrs in line: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not render as an attr: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl))

	logger.Warn("pipeline failed", String("error", "rate limited by provider"))

	if !strings.Contains(buf.String(), `error="rate limited by provider"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", got)
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should not be enabled")
	}
}
