package api

import (
	"encoding/json"
	"time"

	"airlock/internal/airlock"
	"airlock/internal/ledger"
)

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FromItem converts a stored item to its API representation.
func FromItem(item *airlock.Item) Item {
	if item == nil {
		return Item{}
	}
	dto := Item{
		ID:           item.ID,
		AssetID:      item.AssetID,
		SourcePath:   item.SourcePath,
		OriginalName: item.OriginalName,
		Status:       string(item.Status),
		TrustLevel:   string(item.TrustLevel),
		Confidence:   item.Confidence,
		ErrorMessage: item.ErrorMessage,
		UserID:       item.UserID,
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
	if item.LastHeartbeat != nil {
		dto.LastHeartbeat = formatTime(*item.LastHeartbeat)
	}
	if item.PayloadJSON != "" {
		var payload any
		if err := json.Unmarshal([]byte(item.PayloadJSON), &payload); err == nil {
			dto.Payload = payload
		}
	}
	return dto
}

// FromItems converts a slice of stored items.
func FromItems(items []*airlock.Item) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// FromGhost converts a stored ghost entry.
func FromGhost(ghost *ledger.GhostEntry) Ghost {
	if ghost == nil {
		return Ghost{}
	}
	return Ghost{
		ID:             ghost.ID,
		AssetID:        ghost.AssetID,
		ExpectedAmount: ghost.ExpectedAmount,
		ExpectedDate:   ghost.ExpectedDate,
		Description:    ghost.Description,
		Status:         string(ghost.Status),
		TransactionID:  ghost.TransactionID,
	}
}

// FromGhosts converts a slice of stored ghost entries.
func FromGhosts(ghosts []*ledger.GhostEntry) []Ghost {
	if len(ghosts) == 0 {
		return nil
	}
	out := make([]Ghost, 0, len(ghosts))
	for _, ghost := range ghosts {
		out = append(out, FromGhost(ghost))
	}
	return out
}

// FromTransaction converts a committed transaction.
func FromTransaction(txn *ledger.Transaction) Transaction {
	if txn == nil {
		return Transaction{}
	}
	dto := Transaction{
		ID:           txn.ID,
		Date:         txn.Date,
		Description:  txn.Description,
		SourceItemID: txn.SourceItemID,
	}
	for _, line := range txn.Lines {
		dto.Lines = append(dto.Lines, TransactionLine{
			AssetID:  line.AssetID,
			Amount:   line.Amount,
			Currency: line.Currency,
		})
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
