package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"airlock/internal/services"
)

// CSVParser extracts transactions from CSV statements. The header row names
// the columns; order does not matter. Required columns: date, amount.
// Optional: currency, description, counterparty.
type CSVParser struct{}

// NewCSVParser constructs a CSV document parser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// csvRowConfidence is assigned to fully populated rows. Rows missing the
// optional counterparty column get a slightly lower score so sparse
// statements surface in review ordering.
const (
	csvRowConfidence    = 1.0
	csvSparseConfidence = 0.97
	defaultCurrency     = "USD"
)

func (p *CSVParser) Parse(ctx context.Context, data []byte, mimeType string) ([]Transaction, error) {
	if mimeType != MIMECSV {
		return nil, services.Wrap(services.ErrValidation, "parser", "csv",
			fmt.Sprintf("unsupported mime type %q", mimeType), nil)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "parser", "csv", "missing header row", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, services.Wrap(services.ErrValidation, "parser", "csv",
				fmt.Sprintf("missing %s column", required), nil)
		}
	}

	// A header-only document is a valid, empty statement; never return nil,
	// so downstream grading sees an empty list rather than a missing payload.
	out := []Transaction{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "parser", "csv",
				fmt.Sprintf("malformed row %d", line+1), err)
		}
		line++

		tx, err := rowToTransaction(record, cols, line)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func rowToTransaction(record []string, cols map[string]int, line int) (Transaction, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	rawDate := field("date")
	if _, ok := ParseDate(rawDate); !ok {
		return Transaction{}, services.Wrap(services.ErrValidation, "parser", "csv",
			fmt.Sprintf("row %d: unparsable date %q", line, rawDate), nil)
	}

	amount, err := strconv.ParseFloat(field("amount"), 64)
	if err != nil {
		return Transaction{}, services.Wrap(services.ErrValidation, "parser", "csv",
			fmt.Sprintf("row %d: unparsable amount %q", line, field("amount")), err)
	}

	currency := strings.ToUpper(field("currency"))
	if currency == "" {
		currency = defaultCurrency
	}

	tx := Transaction{
		Date:         rawDate,
		Amount:       amount,
		Currency:     currency,
		Description:  field("description"),
		Counterparty: field("counterparty"),
		Confidence:   csvRowConfidence,
	}
	if tx.Counterparty == "" {
		tx.Confidence = csvSparseConfidence
	}
	return tx, nil
}
