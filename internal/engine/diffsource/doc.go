// Package diffsource owns the identity and lifetime of diff areas and diffs.
//
// A diff area is a tracked region of a live document paired with the baseline
// text it was computed against. Each area owns zero or more diffs, one per
// contiguous changed line span. Diff and area records are read-only once
// created: every state transition goes through Source methods, and a
// recompute destroys the affected area and recreates it, and all of its
// diffs, under fresh ids.
//
// Coordinates: a diff's ModifiedRange is absolute in the live document; its
// OriginalRange is 1-based within the area's baseline region. Line counting
// follows the document package's split convention.
//
// Interested parties subscribe with OnDidUpdateArea and receive an Update
// tagged with the reason for the change; ReasonRecompute is the trigger for
// overlay pruning in the transaction manager.
package diffsource
