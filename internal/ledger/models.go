package ledger

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for transaction dates and ghost
// expected dates. Stored as TEXT, so lexicographic order is date order.
const DateLayout = "2006-01-02"

// Transaction is a committed ledger transaction header.
type Transaction struct {
	ID           int64
	Date         string
	Description  string
	SourceItemID int64
	CreatedAt    time.Time
	Lines        []Line
}

// Line is a single signed movement on an asset within a transaction.
type Line struct {
	ID            int64
	TransactionID int64
	AssetID       string
	Amount        float64
	Currency      string
}

// GhostStatus is the lifecycle of a ghost entry.
type GhostStatus string

const (
	GhostPending GhostStatus = "PENDING"
	GhostOverdue GhostStatus = "OVERDUE"
	GhostMatched GhostStatus = "MATCHED"
	GhostVoided  GhostStatus = "VOIDED"
)

// ParseGhostStatus converts a string into a known GhostStatus.
func ParseGhostStatus(value string) (GhostStatus, bool) {
	normalized := GhostStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch normalized {
	case GhostPending, GhostOverdue, GhostMatched, GhostVoided:
		return normalized, true
	}
	return "", false
}

// GhostEntry records an expected movement that has not arrived yet. Once
// matched it points at the transaction that satisfied it and never moves
// again.
type GhostEntry struct {
	ID             int64
	AssetID        string
	ExpectedAmount float64
	ExpectedDate   string
	Description    string
	Status         GhostStatus
	TransactionID  int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
