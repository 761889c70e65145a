// Package transaction implements the edit transaction manager: the
// orchestrator that lets a reviewer accept or reject proposed document edits
// at diff, file, or workspace scope while keeping the live document, the
// diff source's baselines, the undo ledger, and per-file summaries mutually
// consistent.
//
// The manager is the sole issuer of programmatic document writes. Accepting
// a diff advances the area baseline and never rewrites the live buffer;
// rejecting a diff writes back only the diff's own region and realigns
// sibling ranges before the rejected record is deleted. Because the diff
// source destroys and recreates records on recompute, review state lives in
// a Diff State Overlay layered over the source's read-only records, pruned
// whenever a recompute reports fresh ids. Undo bridges the same identity
// problem by snapshotting every diff area and the full document text before
// any mutation and restoring both verbatim.
//
// Callers must not issue concurrent operations against the same uri; the
// manager does not serialize overlapping accept/reject calls on one
// document.
package transaction
