// Package parser converts uploaded document bytes into candidate
// transactions.
//
// The Parser interface is the replaceable extraction collaborator: the CSV
// implementation reads header-driven statements, the stub stands in for a
// real PDF extraction backend with deterministic fixtures, and New wires
// the configured combination behind a MIME dispatcher.
package parser
