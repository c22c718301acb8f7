package services_test

import (
	"errors"
	"strings"
	"testing"

	"airlock/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "blob", "download", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"blob", "download", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestMessageStripsMarkerPrefix(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "parser", "csv", "missing amount column", nil)
	msg := services.Message(err)
	if strings.Contains(msg, "validation error") {
		t.Fatalf("expected marker prefix stripped, got %q", msg)
	}
	if !strings.Contains(msg, "missing amount column") {
		t.Fatalf("expected detail preserved, got %q", msg)
	}
	if got := services.Message(nil); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}
}

func TestIsResolution(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "pipeline", "resolve item", "no item for upload", nil)
	if !services.IsResolution(err) {
		t.Fatalf("expected resolution error, got %v", err)
	}
	if services.IsResolution(errors.New("boom")) {
		t.Fatal("plain error should not classify as resolution")
	}
}
