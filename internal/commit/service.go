package commit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"airlock/internal/airlock"
	"airlock/internal/config"
	"airlock/internal/ledger"
	"airlock/internal/logging"
	"airlock/internal/notifications"
	"airlock/internal/parser"
	"airlock/internal/reconcile"
	"airlock/internal/services"
)

// Outcome reports a completed commit.
type Outcome struct {
	Transaction  *ledger.Transaction
	MatchedCount int
	MatchErrors  []string
}

// Service commits reviewed items into the ledger.
type Service struct {
	cfg      *config.Config
	store    *airlock.Store
	ledger   *ledger.Store
	matcher  *reconcile.Matcher
	notifier notifications.Service
	logger   *slog.Logger
}

// NewService wires the commit gate from its collaborators.
func NewService(cfg *config.Config, store *airlock.Store, lstore *ledger.Store, matcher *reconcile.Matcher, notifier notifications.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if matcher == nil {
		matcher = reconcile.NewMatcher(cfg, lstore, logger)
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		ledger:   lstore,
		matcher:  matcher,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "commit"),
	}
}

// Commit moves an item through the gate. RED items are rejected; committing
// an already committed item returns the existing transaction. Reconciliation
// and notifications run after the commit and never fail it.
func (s *Service) Commit(ctx context.Context, itemID int64) (Outcome, error) {
	item, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load item %d: %w", itemID, err)
	}
	if item == nil {
		return Outcome{}, services.Wrap(services.ErrNotFound, "commit", "commit",
			fmt.Sprintf("item %d not found", itemID), nil)
	}
	if item.TrustLevel == airlock.TrustRed {
		return Outcome{}, services.Wrap(services.ErrValidation, "commit", "commit",
			fmt.Sprintf("item %d is graded RED and cannot be committed", itemID), nil)
	}

	spec, err := s.buildTransaction(item)
	if err != nil {
		return Outcome{}, err
	}

	txn, err := s.ledger.CommitItem(ctx, itemID, spec)
	if err != nil {
		return Outcome{}, err
	}

	logger := logging.WithContext(ctx, s.logger).With(
		logging.FieldItemID, itemID,
		logging.FieldTransactionID, txn.ID,
	)
	logger.Info("item committed")

	result := s.matcher.Match(ctx, txn.ID)
	for _, msg := range result.Errors {
		logger.Warn("reconciliation problem", logging.String("detail", msg))
	}

	s.notify(ctx, logger, item, txn, result)

	return Outcome{Transaction: txn, MatchedCount: result.MatchedCount, MatchErrors: result.Errors}, nil
}

// buildTransaction maps payload rows onto ledger lines. Every extracted
// transaction becomes a line on the item's asset; when the rows net to one
// side, a counterpart line on the clearing asset balances them.
func (s *Service) buildTransaction(item *airlock.Item) (ledger.NewTransaction, error) {
	payload, err := airlock.DecodePayload(item.PayloadJSON)
	if err != nil {
		return ledger.NewTransaction{}, services.Wrap(services.ErrValidation, "commit", "build",
			fmt.Sprintf("item %d payload is unreadable", item.ID), err)
	}
	if payload == nil || len(payload.Transactions) == 0 {
		return ledger.NewTransaction{}, services.Wrap(services.ErrValidation, "commit", "build",
			fmt.Sprintf("item %d has no extracted transactions", item.ID), nil)
	}
	if item.AssetID == "" {
		return ledger.NewTransaction{}, services.Wrap(services.ErrValidation, "commit", "build",
			fmt.Sprintf("item %d has no asset assigned", item.ID), nil)
	}

	date, ok := parser.ParseDate(payload.Transactions[0].Date)
	if !ok {
		return ledger.NewTransaction{}, services.Wrap(services.ErrValidation, "commit", "build",
			fmt.Sprintf("item %d has invalid transaction date %q", item.ID, payload.Transactions[0].Date), nil)
	}

	description := item.OriginalName
	if description == "" {
		description = "Committed from airlock"
	}

	spec := ledger.NewTransaction{
		Date:        date.Format(ledger.DateLayout),
		Description: description,
	}
	var sum float64
	currency := ""
	for _, tx := range payload.Transactions {
		if currency == "" {
			currency = tx.Currency
		}
		spec.Lines = append(spec.Lines, ledger.NewLine{
			AssetID:  item.AssetID,
			Amount:   tx.Amount,
			Currency: tx.Currency,
		})
		sum += tx.Amount
	}
	if math.Abs(sum) >= 0.005 || len(spec.Lines) < 2 {
		spec.Lines = append(spec.Lines, ledger.NewLine{
			AssetID:  s.cfg.Ledger.ClearingAssetID,
			Amount:   -sum,
			Currency: currency,
		})
	}
	return spec, nil
}

func (s *Service) notify(ctx context.Context, logger *slog.Logger, item *airlock.Item, txn *ledger.Transaction, result reconcile.Result) {
	if err := s.notifier.Publish(ctx, notifications.EventItemCommitted, notifications.Payload{
		"item_id":        strconv.FormatInt(item.ID, 10),
		"transaction_id": strconv.FormatInt(txn.ID, 10),
	}); err != nil {
		logger.Warn("commit notification not delivered", logging.Error(err))
	}
	if result.MatchedCount > 0 {
		if err := s.notifier.Publish(ctx, notifications.EventGhostsMatched, notifications.Payload{
			"transaction_id": strconv.FormatInt(txn.ID, 10),
			"count":          strconv.Itoa(result.MatchedCount),
		}); err != nil {
			logger.Warn("match notification not delivered", logging.Error(err))
		}
	}
}
