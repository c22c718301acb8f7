package airlock

import (
	"context"
	"fmt"
	"time"

	"airlock/internal/services"
)

// Transition moves an item between statuses. The move must be in the allowed
// table and the item must still hold the from status when the update lands;
// otherwise a validation error is returned.
func (s *Store) Transition(ctx context.Context, id int64, from, to Status) error {
	if !CanTransition(from, to) {
		return services.Wrap(services.ErrValidation, "airlock", "transition",
			fmt.Sprintf("transition %s -> %s is not allowed", from, to), nil)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE airlock_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		from,
	)
	if err != nil {
		return fmt.Errorf("transition item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "airlock", "transition",
			fmt.Sprintf("item %d is no longer %s", id, from), nil)
	}
	return nil
}

// MarkProcessing claims a QUEUED item for processing. An item already in
// PROCESSING is accepted so a retried pipeline run can resume it.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	err := s.Transition(ctx, id, StatusQueued, StatusProcessing)
	if err == nil {
		return nil
	}
	item, getErr := s.GetByID(ctx, id)
	if getErr == nil && item != nil && item.Status == StatusProcessing {
		return nil
	}
	return err
}

// PersistReview writes the extraction outcome in one update: the item leaves
// PROCESSING with its payload, confidence and trust level set together.
func (s *Store) PersistReview(ctx context.Context, id int64, payloadJSON string, confidence float64, trust TrustLevel) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE airlock_items
         SET status = ?, payload_json = ?, confidence = ?, trust_level = ?,
             error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusReviewNeeded,
		nullableString(payloadJSON),
		confidence,
		string(trust),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("persist review for item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("persist review rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "airlock", "persist-review",
			fmt.Sprintf("item %d is no longer processing", id), nil)
	}
	return nil
}

// MarkError records a failure. Trust level is cleared so a failed item never
// carries a stale grade.
func (s *Store) MarkError(ctx context.Context, id int64, message string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE airlock_items
         SET status = ?, error_message = ?, trust_level = NULL, updated_at = ?
         WHERE id = ?`,
		StatusError,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("mark item %d errored: %w", id, err)
	}
	return nil
}

// Requeue is the operator escape hatch: it moves an ERROR item back to
// QUEUED, clearing the failure, payload grade and confidence so the pipeline
// starts fresh.
func (s *Store) Requeue(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE airlock_items
         SET status = ?, error_message = NULL, trust_level = NULL,
             confidence = 0, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusQueued,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusError,
	)
	if err != nil {
		return fmt.Errorf("requeue item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("requeue rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "airlock", "requeue",
			fmt.Sprintf("item %d is not in ERROR", id), nil)
	}
	return nil
}

// RequeueErrored moves every ERROR item back to QUEUED and returns the count.
func (s *Store) RequeueErrored(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE airlock_items
         SET status = ?, error_message = NULL, trust_level = NULL,
             confidence = 0, last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusQueued,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusError,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue errored items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE airlock_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// StaleProcessing returns PROCESSING items whose heartbeat is older than the
// cutoff. The monitor alerts on these; nothing reclaims them automatically.
func (s *Store) StaleProcessing(ctx context.Context, cutoff time.Time) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM airlock_items
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?
         ORDER BY id`,
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale items: %w", err)
	}
	return items, nil
}
