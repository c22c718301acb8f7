package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"airlock/internal/config"
	"airlock/internal/ledger"
	"airlock/internal/logging"
)

// Matcher pairs ledger lines with pending ghost entries.
type Matcher struct {
	store      *ledger.Store
	windowDays int
	tolerance  float64
	logger     *slog.Logger
}

// Result reports what a matching pass accomplished. Errors holds per-line
// problems; the pass itself never fails.
type Result struct {
	MatchedCount int
	Errors       []string
}

// NewMatcher builds a matcher using the configured date window and amount
// tolerance.
func NewMatcher(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	windowDays := cfg.Matching.WindowDays
	if windowDays <= 0 {
		windowDays = 7
	}
	tolerance := cfg.Matching.AmountTolerance
	if tolerance <= 0 {
		tolerance = 0.05
	}
	return &Matcher{
		store:      store,
		windowDays: windowDays,
		tolerance:  tolerance,
		logger:     logger.With(logging.FieldComponent, "reconcile"),
	}
}

type candidate struct {
	ghost    *ledger.GhostEntry
	distance int
}

// Match pairs every line of a transaction with its best pending ghost. Each
// ghost is consumed at most once per call, preferring the candidate whose
// expected date sits closest to the transaction date, then the lowest ghost
// id. A ghost claimed concurrently by someone else is skipped and the next
// best is tried.
func (m *Matcher) Match(ctx context.Context, transactionID int64) Result {
	var result Result

	txn, err := m.store.GetTransaction(ctx, transactionID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load transaction %d: %v", transactionID, err))
		return result
	}
	if txn == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("transaction %d not found", transactionID))
		return result
	}

	txnDate, err := time.Parse(ledger.DateLayout, txn.Date)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("transaction %d has invalid date %q", transactionID, txn.Date))
		return result
	}

	from := txnDate.AddDate(0, 0, -m.windowDays)
	to := txnDate.AddDate(0, 0, m.windowDays)
	consumed := make(map[int64]struct{})

	for _, line := range txn.Lines {
		ghosts, err := m.store.CandidateGhosts(ctx, line.AssetID, from, to)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("candidates for %s: %v", line.AssetID, err))
			continue
		}

		amount := math.Abs(line.Amount)
		candidates := make([]candidate, 0, len(ghosts))
		for _, ghost := range ghosts {
			if _, taken := consumed[ghost.ID]; taken {
				continue
			}
			if math.Abs(math.Abs(ghost.ExpectedAmount)-amount) > m.tolerance*amount {
				continue
			}
			expected, err := time.Parse(ledger.DateLayout, ghost.ExpectedDate)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("ghost %d has invalid date %q", ghost.ID, ghost.ExpectedDate))
				continue
			}
			days := int(math.Abs(expected.Sub(txnDate).Hours() / 24))
			candidates = append(candidates, candidate{ghost: ghost, distance: days})
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].distance != candidates[j].distance {
				return candidates[i].distance < candidates[j].distance
			}
			return candidates[i].ghost.ID < candidates[j].ghost.ID
		})

		for _, cand := range candidates {
			claimed, err := m.store.ClaimGhost(ctx, cand.ghost.ID, transactionID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("claim ghost %d: %v", cand.ghost.ID, err))
				continue
			}
			if !claimed {
				// Lost the race; the next best candidate gets a turn.
				continue
			}
			consumed[cand.ghost.ID] = struct{}{}
			result.MatchedCount++
			m.logger.Info("ghost matched",
				logging.FieldTransactionID, transactionID,
				"ghost_id", cand.ghost.ID,
				logging.FieldAssetID, line.AssetID,
			)
			break
		}
	}

	return result
}
