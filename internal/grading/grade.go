package grading

import (
	"fmt"
	"math"

	"airlock/internal/airlock"
	"airlock/internal/parser"
)

// DefaultConfidenceThreshold is the score below which an otherwise valid
// payload grades YELLOW.
const DefaultConfidenceThreshold = 0.90

// imbalanceEpsilon is the largest |sum of amounts| still treated as balanced.
const imbalanceEpsilon = 0.01

// Result is the outcome of grading a payload.
type Result struct {
	Level   airlock.TrustLevel
	Message string
}

// Engine grades payloads against a configured confidence threshold.
type Engine struct {
	threshold float64
}

// NewEngine builds a grading engine. Thresholds outside (0, 1] fall back to
// the default.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &Engine{threshold: threshold}
}

// Grade evaluates a payload. Rules in order, first match wins:
// missing asset, malformed payload, bad or unbalanced amounts, invalid
// dates, low confidence, then GREEN. Any internal panic resolves to RED
// rather than escaping to the caller.
func (e *Engine) Grade(payload *airlock.Payload, confidence float64, assetID string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Level: airlock.TrustRed, Message: fmt.Sprintf("grading failed: %v", r)}
		}
	}()

	if assetID == "" {
		return Result{Level: airlock.TrustRed, Message: "unknown asset; assign manually"}
	}

	if payload == nil || payload.Transactions == nil {
		return Result{Level: airlock.TrustRed, Message: "malformed payload"}
	}

	var sum float64
	for _, tx := range payload.Transactions {
		if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
			return Result{Level: airlock.TrustRed, Message: "invalid amount"}
		}
		sum += tx.Amount
	}
	if math.Abs(sum) >= imbalanceEpsilon {
		return Result{Level: airlock.TrustRed, Message: fmt.Sprintf("amounts do not balance (net %.2f)", sum)}
	}

	for _, tx := range payload.Transactions {
		if _, ok := parser.ParseDate(tx.Date); !ok {
			return Result{Level: airlock.TrustRed, Message: fmt.Sprintf("invalid transaction date %q", tx.Date)}
		}
	}

	if confidence < e.threshold {
		return Result{Level: airlock.TrustYellow, Message: fmt.Sprintf("low extraction confidence %.2f", confidence)}
	}

	return Result{Level: airlock.TrustGreen}
}

// Score averages candidate confidences; an empty payload scores zero.
func Score(transactions []parser.Transaction) float64 {
	if len(transactions) == 0 {
		return 0
	}
	var total float64
	for _, tx := range transactions {
		total += tx.Confidence
	}
	return total / float64(len(transactions))
}
