// Package ledger persists committed transactions, their lines, and ghost
// entries. It shares the airlock SQLite database so the commit gate can move
// an item out of review and write its ledger rows in a single transaction.
package ledger
