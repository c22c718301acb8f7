package airlock

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an airlock item.
type Status string

const (
	StatusQueued       Status = "QUEUED"
	StatusProcessing   Status = "PROCESSING"
	StatusReviewNeeded Status = "REVIEW_NEEDED"
	StatusError        Status = "ERROR"
	StatusCommitted    Status = "COMMITTED"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusReviewNeeded,
	StatusError,
	StatusCommitted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions is the closed set of automatic status moves. Anything
// else requires an explicit operation (Requeue) or is rejected.
var allowedTransitions = map[Status][]Status{
	StatusQueued:       {StatusProcessing},
	StatusProcessing:   {StatusReviewNeeded, StatusError},
	StatusReviewNeeded: {StatusCommitted},
}

// CanTransition reports whether from→to is a permitted automatic move.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// TrustLevel is the review grade attached to an item once parsing finishes.
type TrustLevel string

const (
	TrustRed    TrustLevel = "RED"
	TrustYellow TrustLevel = "YELLOW"
	TrustGreen  TrustLevel = "GREEN"
)

// ParseTrustLevel converts a string into a known TrustLevel.
func ParseTrustLevel(value string) (TrustLevel, bool) {
	normalized := TrustLevel(strings.ToUpper(strings.TrimSpace(value)))
	switch normalized {
	case TrustRed, TrustYellow, TrustGreen:
		return normalized, true
	}
	return "", false
}

// Item represents a staged document persisted in SQLite.
type Item struct {
	ID            int64
	AssetID       string
	SourcePath    string
	OriginalName  string
	Status        Status
	TrustLevel    TrustLevel
	Confidence    float64
	PayloadJSON   string
	ErrorMessage  string
	UserID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// IsTerminal reports whether the item can no longer move without operator
// intervention.
func (i Item) IsTerminal() bool {
	return i.Status == StatusError || i.Status == StatusCommitted
}

// HealthSummary describes aggregated item counts per lifecycle state.
type HealthSummary struct {
	Total        int
	Queued       int
	Processing   int
	ReviewNeeded int
	Errored      int
	Committed    int
}
