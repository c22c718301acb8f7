package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airlock/internal/services"
)

// overdueGraceDays is how far past its expected date a pending ghost may sit
// before MarkOverdue flips it.
const overdueGraceDays = 7

// NewGhost describes an expected movement being registered.
type NewGhost struct {
	AssetID        string
	ExpectedAmount float64
	ExpectedDate   string
	Description    string
}

// CreateGhost inserts a PENDING ghost entry.
func (s *Store) CreateGhost(ctx context.Context, params NewGhost) (*GhostEntry, error) {
	if params.AssetID == "" {
		return nil, services.Wrap(services.ErrValidation, "ledger", "create-ghost",
			"ghost asset is required", nil)
	}
	if _, err := time.Parse(DateLayout, params.ExpectedDate); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ledger", "create-ghost",
			fmt.Sprintf("invalid expected date %q", params.ExpectedDate), nil)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO ghost_entries (
            asset_id, expected_amount, expected_date, description,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		params.AssetID,
		params.ExpectedAmount,
		params.ExpectedDate,
		nullableString(params.Description),
		GhostPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ghost: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ghost id: %w", err)
	}
	return s.GetGhost(ctx, id)
}

// GetGhost fetches a ghost by identifier. Missing ghosts return nil.
func (s *Store) GetGhost(ctx context.Context, id int64) (*GhostEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ghostColumns+` FROM ghost_entries WHERE id = ?`, id)
	ghost, err := scanGhost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ghost: %w", err)
	}
	return ghost, nil
}

// ListGhosts returns ghosts, optionally filtered by status, oldest first.
func (s *Store) ListGhosts(ctx context.Context, statuses ...GhostStatus) ([]*GhostEntry, error) {
	query := `SELECT ` + ghostColumns + ` FROM ghost_entries`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (`
		for i, status := range statuses {
			if i > 0 {
				query += `, `
			}
			query += `?`
			args = append(args, status)
		}
		query += `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ghosts: %w", err)
	}
	defer rows.Close()
	return collectGhosts(rows)
}

// CandidateGhosts returns PENDING ghosts on an asset whose expected date
// falls inside the inclusive window, ordered by expected date then id.
func (s *Store) CandidateGhosts(ctx context.Context, assetID string, from, to time.Time) ([]*GhostEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+ghostColumns+` FROM ghost_entries
         WHERE asset_id = ? AND status = ? AND expected_date >= ? AND expected_date <= ?
         ORDER BY expected_date, id`,
		assetID,
		GhostPending,
		from.Format(DateLayout),
		to.Format(DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query candidate ghosts: %w", err)
	}
	defer rows.Close()
	return collectGhosts(rows)
}

// ClaimGhost marks a PENDING ghost MATCHED against a transaction. It reports
// false when the ghost was claimed or voided by someone else first.
func (s *Store) ClaimGhost(ctx context.Context, ghostID, transactionID int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ghost_entries SET status = ?, transaction_id = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		GhostMatched,
		transactionID,
		time.Now().UTC().Format(time.RFC3339Nano),
		ghostID,
		GhostPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim ghost %d: %w", ghostID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkOverdue flips PENDING ghosts whose expected date is more than the grace
// period before asOf to OVERDUE. Returns the number flipped.
func (s *Store) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	cutoff := asOf.AddDate(0, 0, -overdueGraceDays).Format(DateLayout)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ghost_entries SET status = ?, updated_at = ?
         WHERE status = ? AND expected_date < ?`,
		GhostOverdue,
		time.Now().UTC().Format(time.RFC3339Nano),
		GhostPending,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("mark ghosts overdue: %w", err)
	}
	return res.RowsAffected()
}

// VoidGhost retires a ghost that is no longer expected. MATCHED ghosts
// cannot be voided.
func (s *Store) VoidGhost(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ghost_entries SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		GhostVoided,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		GhostPending,
		GhostOverdue,
	)
	if err != nil {
		return fmt.Errorf("void ghost %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("void rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "ledger", "void-ghost",
			fmt.Sprintf("ghost %d is not pending or overdue", id), nil)
	}
	return nil
}

const ghostColumns = "id, asset_id, expected_amount, expected_date, description, status, transaction_id, created_at, updated_at"

func scanGhost(scanner interface{ Scan(dest ...any) error }) (*GhostEntry, error) {
	var (
		id          int64
		assetID     string
		amount      float64
		date        string
		description sql.NullString
		statusStr   string
		txnID       sql.NullInt64
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&id, &assetID, &amount, &date, &description, &statusStr, &txnID, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	return &GhostEntry{
		ID:             id,
		AssetID:        assetID,
		ExpectedAmount: amount,
		ExpectedDate:   date,
		Description:    description.String,
		Status:         GhostStatus(statusStr),
		TransactionID:  txnID.Int64,
		CreatedAt:      parseStoredTime(createdRaw),
		UpdatedAt:      parseStoredTime(updatedRaw),
	}, nil
}

func collectGhosts(rows *sql.Rows) ([]*GhostEntry, error) {
	var ghosts []*GhostEntry
	for rows.Next() {
		ghost, err := scanGhost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ghost: %w", err)
		}
		ghosts = append(ghosts, ghost)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ghosts: %w", err)
	}
	return ghosts, nil
}
