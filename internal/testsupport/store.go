package testsupport

import (
	"context"
	"testing"

	"airlock/internal/airlock"
	"airlock/internal/config"
	"airlock/internal/ledger"
)

// MustOpenStore opens an airlock.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *airlock.Store {
	t.Helper()

	store, err := airlock.Open(cfg)
	if err != nil {
		t.Fatalf("airlock.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenLedger opens a ledger store sharing the airlock database.
func MustOpenLedger(t testing.TB, store *airlock.Store) *ledger.Store {
	t.Helper()
	return ledger.NewStore(store.DB())
}

// NewQueuedItem creates a QUEUED item for tests using the provided store.
func NewQueuedItem(t testing.TB, store *airlock.Store, assetID, sourcePath string) *airlock.Item {
	t.Helper()

	item, err := store.Create(context.Background(), airlock.NewItem{
		AssetID:    assetID,
		SourcePath: sourcePath,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}

// NewReviewItem creates an item already graded and waiting for review.
func NewReviewItem(t testing.TB, store *airlock.Store, assetID, payloadJSON string, trust airlock.TrustLevel) *airlock.Item {
	t.Helper()

	ctx := context.Background()
	item := NewQueuedItem(t, store, assetID, "blobs/"+assetID+".csv")
	if err := store.MarkProcessing(ctx, item.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := store.PersistReview(ctx, item.ID, payloadJSON, 1.0, trust); err != nil {
		t.Fatalf("PersistReview: %v", err)
	}
	refreshed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return refreshed
}

// SeedGhost inserts a pending ghost entry for tests.
func SeedGhost(t testing.TB, store *ledger.Store, assetID string, amount float64, date string) *ledger.GhostEntry {
	t.Helper()

	ghost, err := store.CreateGhost(context.Background(), ledger.NewGhost{
		AssetID:        assetID,
		ExpectedAmount: amount,
		ExpectedDate:   date,
		Description:    "expected " + assetID,
	})
	if err != nil {
		t.Fatalf("CreateGhost: %v", err)
	}
	return ghost
}
