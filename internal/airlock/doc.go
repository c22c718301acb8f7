// Package airlock persists staged document items and their lifecycle in
// SQLite. Items enter QUEUED, move through PROCESSING into REVIEW_NEEDED or
// ERROR, and leave the airlock only through an explicit commit. The store
// enforces the status machine with guarded transitions so concurrent workers
// cannot race an item into an invalid state.
package airlock
