// Package main hosts the airlock CLI entrypoint and command graph.
//
// The Cobra-based command tree covers document uploads, queue inspection,
// commits into the ledger, ghost-entry bookkeeping, and configuration
// scaffolding, plus a foreground daemon runner. Commands open the local
// database directly; the heavy lifting lives in the internal packages and
// subcommands stay focused on user experience.
package main
