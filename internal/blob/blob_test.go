package blob_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"airlock/internal/blob"
	"airlock/internal/services"
	"airlock/internal/testsupport"
)

func TestSaveAndDownloadRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := blob.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	rel, err := store.Save(ctx, "statement.csv", []byte(testsupport.BalancedCSV))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.IsAbs(rel) {
		t.Fatalf("expected relative path, got %q", rel)
	}

	data, err := store.Download(ctx, rel)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(data) != testsupport.BalancedCSV {
		t.Fatalf("round trip mismatch: %q", data)
	}
}

func TestSaveIsContentAddressed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := blob.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	ctx := context.Background()

	first, err := store.Save(ctx, "a.csv", []byte("one"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := store.Save(ctx, "a.csv", []byte("two"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct paths for distinct content, got %q twice", first)
	}
}

func TestDownloadMissingBlobIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := blob.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	_, err = store.Download(context.Background(), "nope.csv")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
