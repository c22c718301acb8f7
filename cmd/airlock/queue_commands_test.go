package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airlock/internal/airlock"
	"airlock/internal/testsupport"
)

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	queued := testsupport.NewQueuedItem(t, env.store, "asset-1", "blobs/alpha.csv")
	if err := env.store.MarkProcessing(ctx, queued.ID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := env.store.MarkError(ctx, queued.ID, "parser exploded"); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	testsupport.NewReviewItem(t, env.store, "asset-2", `{"transactions":[]}`, airlock.TrustGreen)

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "ERROR")
	requireContains(t, out, "REVIEW_NEEDED")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "asset-1")
	requireContains(t, out, "parser exploded")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "ERROR"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --status: %v", err)
	}
	requireContains(t, out, "asset-1")
	if strings.Contains(out, "asset-2") {
		t.Fatalf("did not expect asset-2 in filtered output: %q", out)
	}
}

func TestQueueRetryRestoresErroredItem(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := testsupport.NewQueuedItem(t, env.store, "asset-1", "blobs/alpha.csv")
	if err := env.store.MarkProcessing(ctx, item.ID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := env.store.MarkError(ctx, item.ID, "boom"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Requeued 1")

	updated, err := env.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("lookup item: %v", err)
	}
	if updated.Status != airlock.StatusQueued {
		t.Fatalf("expected QUEUED, got %s", updated.Status)
	}
}

func TestQueueClearSkipsProcessing(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewQueuedItem(t, env.store, "asset-1", "blobs/alpha.csv")
	processing := testsupport.NewQueuedItem(t, env.store, "asset-2", "blobs/beta.csv")
	if err := env.store.MarkProcessing(ctx, processing.ID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 1")

	remaining, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != airlock.StatusProcessing {
		t.Fatalf("expected only the processing item to survive, got %#v", remaining)
	}
}

func TestUploadQueuesDocument(t *testing.T) {
	env := setupCLITestEnv(t)

	docPath := filepath.Join(env.baseDir, "statement.csv")
	if err := os.WriteFile(docPath, []byte(testsupport.BalancedCSV), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	out, _, err := runCLI(t, []string{"upload", docPath, "--asset", "asset-1"}, env.configPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Queued item")

	items, err := env.store.List(context.Background(), airlock.StatusQueued)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].AssetID != "asset-1" {
		t.Fatalf("unexpected queued items: %#v", items)
	}
}

func TestGhostsAddListAndVoid(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"ghosts", "add", "asset-1", "99.95", "2023-10-05", "--description", "Hosting"}, env.configPath)
	if err != nil {
		t.Fatalf("ghosts add: %v", err)
	}
	requireContains(t, out, "Registered ghost")

	out, _, err = runCLI(t, []string{"ghosts", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("ghosts list: %v", err)
	}
	requireContains(t, out, "asset-1")
	requireContains(t, out, "PENDING")

	out, _, err = runCLI(t, []string{"ghosts", "void", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("ghosts void: %v", err)
	}
	requireContains(t, out, "Voided ghost 1")
}
