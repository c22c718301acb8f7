package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"airlock/internal/airlock"
	"airlock/internal/services"
)

// balanceEpsilon is the largest |sum of line amounts| accepted as balanced.
// Half a cent, so rounding noise passes and a real missing cent does not.
const balanceEpsilon = 0.005

// NewLine describes a line of a transaction being committed.
type NewLine struct {
	AssetID  string
	Amount   float64
	Currency string
}

// NewTransaction describes a transaction header and its lines.
type NewTransaction struct {
	Date        string
	Description string
	Lines       []NewLine
}

func validateNewTransaction(txn NewTransaction) error {
	if _, err := time.Parse(DateLayout, txn.Date); err != nil {
		return services.Wrap(services.ErrValidation, "ledger", "commit",
			fmt.Sprintf("invalid transaction date %q", txn.Date), nil)
	}
	if len(txn.Lines) < 2 {
		return services.Wrap(services.ErrValidation, "ledger", "commit",
			"a transaction needs at least two lines", nil)
	}
	var sum float64
	for _, line := range txn.Lines {
		if line.AssetID == "" {
			return services.Wrap(services.ErrValidation, "ledger", "commit",
				"line asset is required", nil)
		}
		if math.IsNaN(line.Amount) || math.IsInf(line.Amount, 0) {
			return services.Wrap(services.ErrValidation, "ledger", "commit",
				fmt.Sprintf("line amount for %s is not a number", line.AssetID), nil)
		}
		sum += line.Amount
	}
	if math.Abs(sum) >= balanceEpsilon {
		return services.Wrap(services.ErrValidation, "ledger", "commit",
			fmt.Sprintf("lines do not balance (sum %.4f)", sum), nil)
	}
	return nil
}

// CommitItem moves an airlock item from REVIEW_NEEDED to COMMITTED and
// writes its ledger transaction, all in one SQL transaction. Committing an
// already committed item is a no-op that returns the existing transaction, so
// concurrent commits of one item yield exactly one ledger transaction.
func (s *Store) CommitItem(ctx context.Context, itemID int64, txn NewTransaction) (*Transaction, error) {
	if err := validateNewTransaction(txn); err != nil {
		return nil, err
	}

	var committed *Transaction
	err := retryOnBusy(ctx, func() error {
		var txErr error
		committed, txErr = s.commitItemOnce(ctx, itemID, txn)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *Store) commitItemOnce(ctx context.Context, itemID int64, txn NewTransaction) (*Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := tx.ExecContext(
		ctx,
		`UPDATE airlock_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		airlock.StatusCommitted,
		now,
		itemID,
		airlock.StatusReviewNeeded,
	)
	if err != nil {
		return nil, fmt.Errorf("guard item %d: %w", itemID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("guard rows affected: %w", err)
	}

	if affected == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM airlock_items WHERE id = ?`, itemID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "ledger", "commit",
				fmt.Sprintf("item %d not found", itemID), nil)
		}
		if err != nil {
			return nil, fmt.Errorf("read item %d status: %w", itemID, err)
		}
		if airlock.Status(status) == airlock.StatusCommitted {
			existing, err := s.findBySourceTx(ctx, tx, itemID)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, fmt.Errorf("item %d committed but no ledger transaction recorded", itemID)
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("commit no-op tx: %w", err)
			}
			return existing, nil
		}
		return nil, services.Wrap(services.ErrValidation, "ledger", "commit",
			fmt.Sprintf("item %d is %s, not awaiting review", itemID, status), nil)
	}

	headerRes, err := tx.ExecContext(
		ctx,
		`INSERT INTO ledger_transactions (date, description, source_item_id, created_at)
         VALUES (?, ?, ?, ?)`,
		txn.Date,
		nullableString(txn.Description),
		itemID,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction header: %w", err)
	}
	txnID, err := headerRes.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("transaction id: %w", err)
	}

	result := &Transaction{
		ID:           txnID,
		Date:         txn.Date,
		Description:  txn.Description,
		SourceItemID: itemID,
		CreatedAt:    parseStoredTime(now),
	}
	for _, line := range txn.Lines {
		lineRes, err := tx.ExecContext(
			ctx,
			`INSERT INTO ledger_lines (transaction_id, asset_id, amount, currency)
             VALUES (?, ?, ?, ?)`,
			txnID,
			line.AssetID,
			line.Amount,
			line.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("insert line for %s: %w", line.AssetID, err)
		}
		lineID, err := lineRes.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("line id: %w", err)
		}
		result.Lines = append(result.Lines, Line{
			ID:            lineID,
			TransactionID: txnID,
			AssetID:       line.AssetID,
			Amount:        line.Amount,
			Currency:      line.Currency,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}
	return result, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) findBySourceTx(ctx context.Context, q rowQuerier, itemID int64) (*Transaction, error) {
	row := q.QueryRowContext(
		ctx,
		`SELECT id, date, description, source_item_id, created_at
         FROM ledger_transactions WHERE source_item_id = ?`,
		itemID,
	)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by source: %w", err)
	}
	if err := s.loadLines(ctx, q, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransaction fetches a transaction with its lines. Missing returns nil.
func (s *Store) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, date, description, source_item_id, created_at
         FROM ledger_transactions WHERE id = ?`,
		id,
	)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if err := s.loadLines(ctx, s.db, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// FindBySourceItem returns the transaction committed from an airlock item.
func (s *Store) FindBySourceItem(ctx context.Context, itemID int64) (*Transaction, error) {
	return s.findBySourceTx(ctx, s.db, itemID)
}

func scanTransaction(scanner interface{ Scan(dest ...any) error }) (*Transaction, error) {
	var (
		id          int64
		date        string
		description sql.NullString
		sourceItem  sql.NullInt64
		createdRaw  string
	)
	if err := scanner.Scan(&id, &date, &description, &sourceItem, &createdRaw); err != nil {
		return nil, err
	}
	return &Transaction{
		ID:           id,
		Date:         date,
		Description:  description.String,
		SourceItemID: sourceItem.Int64,
		CreatedAt:    parseStoredTime(createdRaw),
	}, nil
}

func (s *Store) loadLines(ctx context.Context, q rowQuerier, txn *Transaction) error {
	rows, err := q.QueryContext(
		ctx,
		`SELECT id, transaction_id, asset_id, amount, currency
         FROM ledger_lines WHERE transaction_id = ? ORDER BY id`,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("load lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.TransactionID, &line.AssetID, &line.Amount, &line.Currency); err != nil {
			return fmt.Errorf("scan line: %w", err)
		}
		txn.Lines = append(txn.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate lines: %w", err)
	}
	return nil
}
