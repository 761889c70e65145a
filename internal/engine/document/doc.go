// Package document provides the in-memory document store: uri-addressed text
// models supporting range-scoped replacement.
//
// Positions are 1-based line/column pairs addressing a point between bytes.
// The ColEnd sentinel column addresses the end of a line, before its newline,
// regardless of the line's length. A Range is the half-open span between two
// positions; replacing it returns an EditResult describing the old text and
// the net line delta, which callers feed into range realignment and the
// history ledger.
//
// The store also carries the system-write guard: a re-entrancy marker that
// lets reactive listeners distinguish engine-originated writes from user
// edits. It is a marker, not a lock.
package document
