// Package pipeline runs the asynchronous ingestion flow: it resolves an
// uploaded document to its airlock item, fetches and parses the bytes,
// grades the extraction, and persists the review outcome. A Manager polls
// for queued items in daemon mode and dispatches each to its own goroutine.
//
// Pipeline failures never propagate to the caller as retryable errors. A
// failed step lands the item in ERROR with the message persisted; callers
// learn the outcome by polling item status.
package pipeline
