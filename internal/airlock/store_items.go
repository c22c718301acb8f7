package airlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewItem describes a document entering the airlock.
type NewItem struct {
	AssetID      string
	SourcePath   string
	OriginalName string
	UserID       string
}

// Create inserts a new item in QUEUED state.
func (s *Store) Create(ctx context.Context, params NewItem) (*Item, error) {
	if params.SourcePath == "" {
		return nil, errors.New("source path is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO airlock_items (
            asset_id, source_path, original_name, status, confidence,
            user_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(params.AssetID),
		params.SourcePath,
		nullableString(params.OriginalName),
		StatusQueued,
		0.0,
		nullableString(params.UserID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an item by identifier. Missing items return nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM airlock_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindBySource returns the most recent item matching an asset and source path.
func (s *Store) FindBySource(ctx context.Context, assetID, sourcePath string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM airlock_items
         WHERE source_path = ? AND (asset_id = ? OR (asset_id IS NULL AND ? = ''))
         ORDER BY id DESC LIMIT 1`,
		sourcePath,
		nullableString(assetID),
		assetID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing item. Status is written as-is; use
// Transition for guarded lifecycle moves.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE airlock_items
         SET asset_id = ?, source_path = ?, original_name = ?, status = ?,
             trust_level = ?, confidence = ?, payload_json = ?, error_message = ?,
             user_id = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.AssetID),
		item.SourcePath,
		nullableString(item.OriginalName),
		item.Status,
		nullableString(string(item.TrustLevel)),
		item.Confidence,
		nullableString(item.PayloadJSON),
		nullableString(item.ErrorMessage),
		nullableString(item.UserID),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns items, optionally filtered to a set of statuses, oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM airlock_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// NextQueued returns the oldest QUEUED item, or nil when the queue is empty.
func (s *Store) NextQueued(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM airlock_items WHERE status = ? ORDER BY id LIMIT 1`,
		StatusQueued,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next queued item: %w", err)
	}
	return item, nil
}

// Health summarizes item counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM airlock_items GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("summarize items: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Total += count
		switch Status(statusStr) {
		case StatusQueued:
			summary.Queued = count
		case StatusProcessing:
			summary.Processing = count
		case StatusReviewNeeded:
			summary.ReviewNeeded = count
		case StatusError:
			summary.Errored = count
		case StatusCommitted:
			summary.Committed = count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

// Clear deletes items in the given statuses and returns the number removed.
// With no statuses it clears everything except PROCESSING items.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	var (
		query string
		args  []any
	)
	if len(statuses) == 0 {
		query = `DELETE FROM airlock_items WHERE status != ?`
		args = append(args, StatusProcessing)
	} else {
		query = `DELETE FROM airlock_items WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return res.RowsAffected()
}
