package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	inner := errors.New("connection refused")
	err := Wrap(ErrExternalService, "pipeline", "run", "orchestrator unreachable", inner)
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected marker preserved: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected inner error preserved: %v", err)
	}
	want := "external service error: pipeline: run: orchestrator unreachable: connection refused"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "media", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker: %v", err)
	}
	if err.Error() != "transient failure: media" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Wrap(ErrValidation, "brief", "build", "missing slug", nil), false},
		{Wrap(ErrConfiguration, "pipeline", "", "base url unset", nil), false},
		{Wrap(ErrNotFound, "queue", "", "item missing", nil), false},
		{Wrap(ErrExternalService, "pipeline", "", "http 502", nil), true},
		{Wrap(ErrTimeout, "pipeline", "", "deadline", nil), true},
		{errors.New("untyped"), true},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
