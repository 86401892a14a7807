// Package feed reads update batches from files.
//
// A batch file is JSON, YAML, or CUE. Every format is lowered to a CUE value
// and unified with the embedded #Batch schema before decoding, so all three
// share one set of validation rules: unknown fields are rejected, ids are
// non-negative integers, and optional fields may be absent or null.
//
// Watch turns a directory into a live batch source: files dropped into it
// are coalesced per burst of filesystem activity, loaded in name order, and
// streamed to the caller.
package feed
