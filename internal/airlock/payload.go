package airlock

import (
	"encoding/json"
	"fmt"

	"airlock/internal/parser"
)

// Payload is the persisted extraction result for an item. A nil Transactions
// slice is preserved through the JSON round trip so the grading engine can
// distinguish "never parsed" from "parsed empty".
type Payload struct {
	Transactions []parser.Transaction `json:"transactions"`
}

// EncodePayload serializes a payload for storage on an item.
func EncodePayload(p *Payload) (string, error) {
	if p == nil {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses the stored payload JSON. Empty input yields nil.
func DecodePayload(raw string) (*Payload, error) {
	if raw == "" {
		return nil, nil
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &p, nil
}
