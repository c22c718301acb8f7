package parser

import (
	"context"
	"time"
)

// MIME types the pipeline dispatches on.
const (
	MIMECSV = "text/csv"
	MIMEPDF = "application/pdf"
)

// Transaction is a single candidate transaction extracted from a document.
// Amounts are signed; confidence is the extractor's own estimate in [0, 1].
type Transaction struct {
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Description  string  `json:"description"`
	Counterparty string  `json:"counterparty,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Parser converts raw document bytes into candidate transactions.
// Implementations are swappable; the pipeline selects by MIME type and
// configuration.
type Parser interface {
	Parse(ctx context.Context, data []byte, mimeType string) ([]Transaction, error)
}

// dateFormats are the forms an extracted date may take. Grading applies the
// same set, so a date the parser emits always grades as valid.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate reports the parsed date and whether the value is usable.
func ParseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
