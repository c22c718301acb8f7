// Package reconcile matches committed ledger lines against ghost entries,
// the expected-but-unarrived movements registered ahead of time. Matching is
// best effort: it never fails the commit that triggered it, and reports
// per-line problems as collected messages instead of errors.
package reconcile
