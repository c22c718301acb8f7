// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover the ingestion milestones so callers
// can emit consistent, user-friendly messages without duplicating HTTP glue.
//
// All callers treat delivery failures as log-and-continue; nothing in the
// pipeline depends on a notification landing.
package notifications
