package api_test

import (
	"context"
	"errors"
	"testing"

	"airlock/internal/airlock"
	"airlock/internal/api"
	"airlock/internal/blob"
	"airlock/internal/services"
	"airlock/internal/testsupport"
)

func newService(t *testing.T) (*api.QueueService, *airlock.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lstore := testsupport.MustOpenLedger(t, store)
	blobs, err := blob.NewStore(cfg)
	if err != nil {
		t.Fatalf("blob.NewStore failed: %v", err)
	}
	return api.NewQueueService(cfg, store, lstore, blobs), store
}

func TestUploadStagesContentAndQueuesItem(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	dto, err := svc.Upload(ctx, api.UploadRequest{
		FileName: "october.csv",
		Content:  testsupport.BalancedCSV,
		AssetID:  "asset-1",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if dto.Status != string(airlock.StatusQueued) || dto.AssetID != "asset-1" {
		t.Fatalf("unexpected item: %#v", dto)
	}
	if dto.SourcePath == "" {
		t.Fatal("expected a stored blob path")
	}

	item, err := store.GetByID(ctx, dto.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item == nil || item.OriginalName != "october.csv" {
		t.Fatalf("unexpected stored item: %#v", item)
	}
}

func TestUploadRequiresContentOrPath(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Upload(context.Background(), api.UploadRequest{AssetID: "asset-1"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePayloadRegradesAtFullConfidence(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	item := testsupport.NewReviewItem(t, store, "asset-1", `{"transactions":[]}`, airlock.TrustYellow)

	dto, err := svc.UpdatePayload(ctx, item.ID, api.UpdatePayloadRequest{
		Transactions: []api.PayloadTransaction{
			{Date: "2023-10-01", Amount: -42.50, Currency: "USD", Description: "Chairs"},
			{Date: "2023-10-01", Amount: 42.50, Currency: "USD", Description: "Settlement"},
		},
	})
	if err != nil {
		t.Fatalf("UpdatePayload failed: %v", err)
	}
	if dto.TrustLevel != string(airlock.TrustGreen) {
		t.Fatalf("expected GREEN after edit, got %s", dto.TrustLevel)
	}
	if dto.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %v", dto.Confidence)
	}
	if dto.Status != string(airlock.StatusReviewNeeded) {
		t.Fatalf("expected item to stay in review, got %s", dto.Status)
	}
}

func TestUpdatePayloadImbalanceGradesRed(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	item := testsupport.NewReviewItem(t, store, "asset-1", `{"transactions":[]}`, airlock.TrustGreen)
	dto, err := svc.UpdatePayload(ctx, item.ID, api.UpdatePayloadRequest{
		Transactions: []api.PayloadTransaction{
			{Date: "2023-10-01", Amount: 99, Currency: "USD"},
		},
	})
	if err != nil {
		t.Fatalf("UpdatePayload failed: %v", err)
	}
	if dto.TrustLevel != string(airlock.TrustRed) {
		t.Fatalf("expected RED for imbalanced edit, got %s", dto.TrustLevel)
	}
}

func TestUpdatePayloadRejectsNonReviewItems(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	queued := testsupport.NewQueuedItem(t, store, "asset-1", "blobs/a.csv")
	_, err := svc.UpdatePayload(ctx, queued.ID, api.UpdatePayloadRequest{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.UpdatePayload(ctx, queued.ID+99, api.UpdatePayloadRequest{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	testsupport.NewQueuedItem(t, store, "asset-1", "blobs/a.csv")
	testsupport.NewReviewItem(t, store, "asset-2", `{"transactions":[]}`, airlock.TrustGreen)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[string(airlock.StatusQueued)] != 1 || stats[string(airlock.StatusReviewNeeded)] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
