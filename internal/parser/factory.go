package parser

import (
	"context"
	"path/filepath"
	"strings"

	"airlock/internal/config"
)

// New builds the configured parser. CSV documents are always handled by the
// CSV parser regardless of provider; the provider selects the backend for
// everything else.
func New(cfg *config.Config) Parser {
	confidence := 0.95
	if cfg != nil {
		confidence = cfg.Parser.StubConfidence
	}
	return &dispatcher{
		csv:      NewCSVParser(),
		fallback: NewStubParser(confidence),
	}
}

type dispatcher struct {
	csv      Parser
	fallback Parser
}

func (d *dispatcher) Parse(ctx context.Context, data []byte, mimeType string) ([]Transaction, error) {
	if mimeType == MIMECSV {
		return d.csv.Parse(ctx, data, mimeType)
	}
	return d.fallback.Parse(ctx, data, mimeType)
}

// MIMEForPath infers the document MIME type from the file extension.
// Anything that is not CSV is treated as PDF.
func MIMEForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return MIMECSV
	}
	return MIMEPDF
}
