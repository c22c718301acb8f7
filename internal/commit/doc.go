// Package commit is the gate between the airlock and the ledger. It turns a
// reviewed item's payload into balanced ledger lines, commits them through
// the ledger store's idempotent transaction, then runs ghost reconciliation
// and pushes notifications as best effort.
package commit
