// Package knot provides the data model for a skein: knots, categories,
// update batches, and their canonical serialization.
//
// This package contains type definitions only. All other internal packages
// import knot; knot imports nothing internal.
//
// Key design constraints:
//   - Knots live in a single owning map (Knots) keyed by id
//   - Parent and selected-child links are ids, never pointers
//   - The root is always id 0 and is the only knot without a parent
//   - All JSON tags use snake_case
//   - Integers only; no float types anywhere
package knot
