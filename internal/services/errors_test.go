package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"emoroute/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "materialize", "transcode", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"materialize", "transcode", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, services.StatusCompleted},
		{"configuration", services.Wrap(services.ErrConfiguration, "route", "catalog", "bad final map", nil), services.StatusConfigError},
		{"validation", services.Wrap(services.ErrValidation, "route", "", "invalid", nil), services.StatusConfigError},
		{"cancelled", fmt.Errorf("route: %w", context.Canceled), services.StatusCancelled},
		{"transient", services.Wrap(services.ErrTransient, "materialize", "copy", "copy failed", errors.New("io")), services.StatusFailed},
	}
	for _, tc := range cases {
		if got := services.FailureStatus(tc.err); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
