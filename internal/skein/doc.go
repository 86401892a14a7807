// Package skein implements the knot-tree state model.
//
// A Tree owns the skein as an arena (knot.Knots) and is mutated only by
// applying update batches. After every batch the derived views are
// recomputed in full from the new snapshot:
//
//   - Self categories: Classify over each knot's response/unblessed fields
//   - Tree categories: Propagate carries the worst category up to the root
//   - Display path: DisplayPath follows selected children from the root
//   - Label index: Labels sorts labeled knots, "START" first
//   - Totals: per-category knot counts
//
// The derivations are pure functions over a snapshot. They never observe a
// half-applied batch: Apply builds the next snapshot off to the side and
// swaps it in under the write lock.
//
// # Invariants
//
//   - For every c in parent.Children, knots[c].ParentID == parent.ID
//   - Selected is nil or a member of Children
//   - The root is id 0 and is the only knot without a parent
//
// Apply enforces these by skipping or repairing offending records and
// reporting each case as an *InvariantError in the ApplyReport.
package skein
