package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"airlock/internal/airlock"
	"airlock/internal/ledger"
	"airlock/internal/services"
	"airlock/internal/testsupport"
)

func newStores(t *testing.T) (*airlock.Store, *ledger.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return store, testsupport.MustOpenLedger(t, store)
}

func balancedLines() []ledger.NewLine {
	return []ledger.NewLine{
		{AssetID: "asset-1", Amount: -120.50, Currency: "USD"},
		{AssetID: "clearing", Amount: 120.50, Currency: "USD"},
	}
}

func TestCommitItemWritesTransactionAndFlipsStatus(t *testing.T) {
	store, lstore := newStores(t)
	ctx := context.Background()

	item := testsupport.NewReviewItem(t, store, "asset-1", `{"transactions":[]}`, airlock.TrustGreen)

	txn, err := lstore.CommitItem(ctx, item.ID, ledger.NewTransaction{
		Date:        "2023-10-01",
		Description: "October statement",
		Lines:       balancedLines(),
	})
	if err != nil {
		t.Fatalf("CommitItem failed: %v", err)
	}
	if txn.ID == 0 || txn.SourceItemID != item.ID || len(txn.Lines) != 2 {
		t.Fatalf("unexpected transaction: %#v", txn)
	}

	committed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if committed.Status != airlock.StatusCommitted {
		t.Fatalf("expected COMMITTED, got %s", committed.Status)
	}

	fetched, err := lstore.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if fetched == nil || len(fetched.Lines) != 2 || fetched.Lines[0].AssetID != "asset-1" {
		t.Fatalf("unexpected fetched transaction: %#v", fetched)
	}
}

func TestCommitItemIsIdempotent(t *testing.T) {
	store, lstore := newStores(t)
	ctx := context.Background()

	item := testsupport.NewReviewItem(t, store, "asset-1", `{"transactions":[]}`, airlock.TrustGreen)
	spec := ledger.NewTransaction{Date: "2023-10-01", Lines: balancedLines()}

	first, err := lstore.CommitItem(ctx, item.ID, spec)
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	second, err := lstore.CommitItem(ctx, item.ID, spec)
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same transaction, got %d and %d", first.ID, second.ID)
	}

	all, err := lstore.FindBySourceItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("FindBySourceItem failed: %v", err)
	}
	if all == nil || all.ID != first.ID {
		t.Fatalf("unexpected source lookup: %#v", all)
	}
}

func TestCommitItemConcurrentCallersProduceOneTransaction(t *testing.T) {
	store, lstore := newStores(t)
	ctx := context.Background()

	item := testsupport.NewReviewItem(t, store, "asset-1", `{"transactions":[]}`, airlock.TrustGreen)
	spec := ledger.NewTransaction{Date: "2023-10-01", Lines: balancedLines()}

	const callers = 8
	results := make([]*ledger.Transaction, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = lstore.CommitItem(ctx, item.ID, spec)
		}(i)
	}
	wg.Wait()

	var txnID int64
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if txnID == 0 {
			txnID = results[i].ID
		}
		if results[i].ID != txnID {
			t.Fatalf("caller %d saw transaction %d, want %d", i, results[i].ID, txnID)
		}
	}
}

func TestCommitItemRejectsInvalidInput(t *testing.T) {
	store, lstore := newStores(t)
	ctx := context.Background()

	item := testsupport.NewReviewItem(t, store, "asset-1", `{"transactions":[]}`, airlock.TrustGreen)

	cases := []struct {
		name string
		txn  ledger.NewTransaction
	}{
		{"unbalanced", ledger.NewTransaction{Date: "2023-10-01", Lines: []ledger.NewLine{
			{AssetID: "asset-1", Amount: -10, Currency: "USD"},
			{AssetID: "clearing", Amount: 9.98, Currency: "USD"},
		}}},
		{"single line", ledger.NewTransaction{Date: "2023-10-01", Lines: []ledger.NewLine{
			{AssetID: "asset-1", Amount: 0, Currency: "USD"},
		}}},
		{"bad date", ledger.NewTransaction{Date: "October 1st", Lines: balancedLines()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := lstore.CommitItem(ctx, item.ID, tc.txn); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// The guard stays intact after rejected attempts.
	refreshed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if refreshed.Status != airlock.StatusReviewNeeded {
		t.Fatalf("expected item still REVIEW_NEEDED, got %s", refreshed.Status)
	}
}

func TestCommitItemRejectsWrongState(t *testing.T) {
	store, lstore := newStores(t)
	ctx := context.Background()

	queued := testsupport.NewQueuedItem(t, store, "asset-1", "blobs/a.csv")
	spec := ledger.NewTransaction{Date: "2023-10-01", Lines: balancedLines()}

	if _, err := lstore.CommitItem(ctx, queued.ID, spec); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for QUEUED item, got %v", err)
	}
	if _, err := lstore.CommitItem(ctx, queued.ID+50, spec); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestGhostLifecycle(t *testing.T) {
	store, lstore := newStores(t)
	ctx := context.Background()
	_ = store

	ghost := testsupport.SeedGhost(t, lstore, "asset-1", -120.50, "2023-10-03")
	if ghost.Status != ledger.GhostPending {
		t.Fatalf("expected PENDING, got %s", ghost.Status)
	}

	from, _ := time.Parse(ledger.DateLayout, "2023-09-26")
	to, _ := time.Parse(ledger.DateLayout, "2023-10-08")
	candidates, err := lstore.CandidateGhosts(ctx, "asset-1", from, to)
	if err != nil {
		t.Fatalf("CandidateGhosts failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != ghost.ID {
		t.Fatalf("unexpected candidates: %#v", candidates)
	}

	// Window boundaries are inclusive, other assets excluded.
	outside, err := lstore.CandidateGhosts(ctx, "asset-1", from, from)
	if err != nil {
		t.Fatalf("CandidateGhosts failed: %v", err)
	}
	if len(outside) != 0 {
		t.Fatalf("expected no candidates outside the window, got %d", len(outside))
	}
	other, err := lstore.CandidateGhosts(ctx, "asset-2", from, to)
	if err != nil {
		t.Fatalf("CandidateGhosts failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no candidates on another asset, got %d", len(other))
	}

	claimed, err := lstore.ClaimGhost(ctx, ghost.ID, 41)
	if err != nil {
		t.Fatalf("ClaimGhost failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim to succeed")
	}

	// Already matched, the second claim loses.
	reclaimed, err := lstore.ClaimGhost(ctx, ghost.ID, 42)
	if err != nil {
		t.Fatalf("second ClaimGhost failed: %v", err)
	}
	if reclaimed {
		t.Fatal("expected second claim to report false")
	}

	matched, err := lstore.GetGhost(ctx, ghost.ID)
	if err != nil {
		t.Fatalf("GetGhost failed: %v", err)
	}
	if matched.Status != ledger.GhostMatched || matched.TransactionID != 41 {
		t.Fatalf("unexpected matched ghost: %#v", matched)
	}

	if err := lstore.VoidGhost(ctx, ghost.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error voiding a matched ghost, got %v", err)
	}
}

func TestMarkOverdueFlipsOnlyStalePending(t *testing.T) {
	store, lstore := newStores(t)
	ctx := context.Background()
	_ = store

	stale := testsupport.SeedGhost(t, lstore, "asset-1", -50, "2023-10-01")
	fresh := testsupport.SeedGhost(t, lstore, "asset-1", -60, "2023-10-08")

	asOf, _ := time.Parse(ledger.DateLayout, "2023-10-10")
	flipped, err := lstore.MarkOverdue(ctx, asOf)
	if err != nil {
		t.Fatalf("MarkOverdue failed: %v", err)
	}
	if flipped != 1 {
		t.Fatalf("expected 1 ghost flipped, got %d", flipped)
	}

	got, err := lstore.GetGhost(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetGhost failed: %v", err)
	}
	if got.Status != ledger.GhostOverdue {
		t.Fatalf("expected OVERDUE, got %s", got.Status)
	}
	still, err := lstore.GetGhost(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetGhost failed: %v", err)
	}
	if still.Status != ledger.GhostPending {
		t.Fatalf("expected fresh ghost to stay PENDING, got %s", still.Status)
	}

	// Overdue ghosts stop being match candidates.
	from, _ := time.Parse(ledger.DateLayout, "2023-09-24")
	to, _ := time.Parse(ledger.DateLayout, "2023-10-08")
	candidates, err := lstore.CandidateGhosts(ctx, "asset-1", from, to)
	if err != nil {
		t.Fatalf("CandidateGhosts failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != fresh.ID {
		t.Fatalf("expected only the pending ghost, got %#v", candidates)
	}
}
