// Package aggregates defines domain-facing aggregate contracts for the scoring ledger.
//
// Contracts avoid persistence/transport details and mark the write boundaries where
// log/aggregate/tracker invariants must hold atomically.
package aggregates
