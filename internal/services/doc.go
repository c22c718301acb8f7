// Package services defines shared utilities consumed by the ingestion
// pipeline and the external collaborators around it.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, step names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (resolution vs validation vs transient) so the pipeline boundary can
//     decide what gets persisted on the item and what aborts silently.
//
// Use these helpers when wiring new pipeline steps so operational behaviour
// (error handling, observability) stays uniform across the system.
package services
