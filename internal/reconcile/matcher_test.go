package reconcile_test

import (
	"context"
	"testing"

	"airlock/internal/airlock"
	"airlock/internal/config"
	"airlock/internal/ledger"
	"airlock/internal/reconcile"
	"airlock/internal/testsupport"
)

type fixture struct {
	cfg     *config.Config
	store   *airlock.Store
	ledger  *ledger.Store
	matcher *reconcile.Matcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lstore := testsupport.MustOpenLedger(t, store)
	return &fixture{
		cfg:     cfg,
		store:   store,
		ledger:  lstore,
		matcher: reconcile.NewMatcher(cfg, lstore, nil),
	}
}

func (f *fixture) commit(t *testing.T, date string, lines ...ledger.NewLine) *ledger.Transaction {
	t.Helper()
	item := testsupport.NewReviewItem(t, f.store, "asset-1", `{"transactions":[]}`, airlock.TrustGreen)
	txn, err := f.ledger.CommitItem(context.Background(), item.ID, ledger.NewTransaction{
		Date:  date,
		Lines: lines,
	})
	if err != nil {
		t.Fatalf("CommitItem failed: %v", err)
	}
	return txn
}

func pair(asset string, amount float64) []ledger.NewLine {
	return []ledger.NewLine{
		{AssetID: asset, Amount: amount, Currency: "USD"},
		{AssetID: "clearing", Amount: -amount, Currency: "USD"},
	}
}

func TestMatchClaimsGhostInWindowAndTolerance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ghost := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-03")
	txn := f.commit(t, "2023-10-01", pair("asset-1", -100)...)

	result := f.matcher.Match(ctx, txn.ID)
	if result.MatchedCount != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}

	matched, err := f.ledger.GetGhost(ctx, ghost.ID)
	if err != nil {
		t.Fatalf("GetGhost failed: %v", err)
	}
	if matched.Status != ledger.GhostMatched || matched.TransactionID != txn.ID {
		t.Fatalf("unexpected ghost after match: %#v", matched)
	}
}

func TestMatchAmountToleranceIsInclusiveFivePercent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 105 is exactly 5% above 100: inside. 105.01 is not.
	exact := testsupport.SeedGhost(t, f.ledger, "asset-1", -105, "2023-10-01")
	txn := f.commit(t, "2023-10-01", pair("asset-1", -100)...)

	result := f.matcher.Match(ctx, txn.ID)
	if result.MatchedCount != 1 {
		t.Fatalf("expected exact-tolerance ghost matched, got %#v", result)
	}
	matched, _ := f.ledger.GetGhost(ctx, exact.ID)
	if matched.Status != ledger.GhostMatched {
		t.Fatalf("expected MATCHED, got %s", matched.Status)
	}

	testsupport.SeedGhost(t, f.ledger, "asset-1", -105.01, "2023-10-01")
	second := f.commit(t, "2023-10-01", pair("asset-1", -100)...)
	result = f.matcher.Match(ctx, second.ID)
	if result.MatchedCount != 0 {
		t.Fatalf("expected out-of-tolerance ghost skipped, got %#v", result)
	}
}

func TestMatchWindowIsInclusiveSevenDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	edge := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-08")
	txn := f.commit(t, "2023-10-01", pair("asset-1", -100)...)
	result := f.matcher.Match(ctx, txn.ID)
	if result.MatchedCount != 1 {
		t.Fatalf("expected 7-day ghost matched, got %#v", result)
	}
	matched, _ := f.ledger.GetGhost(ctx, edge.ID)
	if matched.Status != ledger.GhostMatched {
		t.Fatalf("expected MATCHED, got %s", matched.Status)
	}

	testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-09")
	second := f.commit(t, "2023-10-01", pair("asset-1", -100)...)
	result = f.matcher.Match(ctx, second.ID)
	if result.MatchedCount != 0 {
		t.Fatalf("expected 8-day ghost outside window, got %#v", result)
	}
}

func TestMatchPrefersClosestDateThenLowestID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	far := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-06")
	near := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-02")
	txn := f.commit(t, "2023-10-01", pair("asset-1", -100)...)

	result := f.matcher.Match(ctx, txn.ID)
	if result.MatchedCount != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	got, _ := f.ledger.GetGhost(ctx, near.ID)
	if got.Status != ledger.GhostMatched {
		t.Fatalf("expected closest-date ghost matched, got %#v", got)
	}
	untouched, _ := f.ledger.GetGhost(ctx, far.ID)
	if untouched.Status != ledger.GhostPending {
		t.Fatalf("expected farther ghost untouched, got %#v", untouched)
	}

	// Equal distance: the lower id wins.
	lower := testsupport.SeedGhost(t, f.ledger, "asset-2", -50, "2023-10-02")
	testsupport.SeedGhost(t, f.ledger, "asset-2", -50, "2023-10-02")
	second := f.commit(t, "2023-10-01", pair("asset-2", -50)...)
	result = f.matcher.Match(ctx, second.ID)
	if result.MatchedCount != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	winner, _ := f.ledger.GetGhost(ctx, lower.ID)
	if winner.Status != ledger.GhostMatched {
		t.Fatalf("expected lowest-id ghost matched, got %#v", winner)
	}
}

func TestMatchConsumesEachGhostOncePerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-01")
	second := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-01")
	txn := f.commit(t, "2023-10-01",
		ledger.NewLine{AssetID: "asset-1", Amount: -100, Currency: "USD"},
		ledger.NewLine{AssetID: "asset-1", Amount: -100, Currency: "USD"},
		ledger.NewLine{AssetID: "clearing", Amount: 200, Currency: "USD"},
	)

	result := f.matcher.Match(ctx, txn.ID)
	if result.MatchedCount != 2 {
		t.Fatalf("expected both lines matched to distinct ghosts, got %#v", result)
	}
	a, _ := f.ledger.GetGhost(ctx, first.ID)
	b, _ := f.ledger.GetGhost(ctx, second.ID)
	if a.Status != ledger.GhostMatched || b.Status != ledger.GhostMatched {
		t.Fatalf("expected both ghosts matched, got %s and %s", a.Status, b.Status)
	}
}

func TestMatchSkipsClaimedGhostAndTriesNextBest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stolen := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-01")
	backup := testsupport.SeedGhost(t, f.ledger, "asset-1", -100, "2023-10-03")

	other := f.commit(t, "2023-10-02", pair("asset-1", -100)...)
	if claimed, err := f.ledger.ClaimGhost(ctx, stolen.ID, other.ID); err != nil || !claimed {
		t.Fatalf("setup claim failed: %v %v", claimed, err)
	}

	txn := f.commit(t, "2023-10-01", pair("asset-1", -100)...)
	result := f.matcher.Match(ctx, txn.ID)
	if result.MatchedCount != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
	got, _ := f.ledger.GetGhost(ctx, backup.ID)
	if got.Status != ledger.GhostMatched || got.TransactionID != txn.ID {
		t.Fatalf("expected next-best ghost claimed, got %#v", got)
	}
}

func TestMatchNoCandidatesIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.commit(t, "2023-10-01", pair("asset-1", -100)...)
	result := f.matcher.Match(ctx, txn.ID)
	if result.MatchedCount != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected silent no-op, got %#v", result)
	}
}

func TestMatchMissingTransactionReportsOneError(t *testing.T) {
	f := newFixture(t)

	result := f.matcher.Match(context.Background(), 9999)
	if result.MatchedCount != 0 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
}
