// Package daemon coordinates the long-running airlock process.
//
// It wires configuration, item storage, the ingestion pipeline manager, and
// the HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon owns startup and shutdown ordering; the
// ingestion, grading, and commit semantics live in their respective packages.
package daemon
